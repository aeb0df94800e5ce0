// =============================================================================
// BR Code Generator - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the merchant
// profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, naming, concurrency
//   2. Merchant Profiles (profiles/*.yaml): one file per payee
//
// ENVIRONMENT:
//   Every main config option can be overridden with a BRCODE_ prefixed
//   variable (e.g., BRCODE_LOG_LEVEL=debug, BRCODE_MAX_CONCURRENCY=8). The
//   environment is applied after the YAML file.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "BRCODE_"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for order files (*.csv, *.xlsx).
	// Default: "./input"
	InputDir string `yaml:"input_dir" env:"INPUT_DIR"`

	// OutputDir receives the generated payload manifests.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`

	// InputArchiveDir receives order files once their manifest is written.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" env:"INPUT_ARCHIVE_DIR"`

	// OutputArchiveDir is used by the archive retention sweep.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" env:"OUTPUT_ARCHIVE_DIR"`

	// ProfilesDir contains one YAML file per merchant profile.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir" env:"PROFILES_DIR"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an extra sink for the structured log. Empty logs to stderr only.
	LogFile string `yaml:"log_file" env:"LOG_FILE"`

	// LogLevel: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the manifest file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {profile}   - Merchant profile code
	//   {original}  - Input file name without extension
	//
	// Default: "{profile}_{original}_{uuid}.xml"
	OutputNameFormat string `yaml:"output_name_format" env:"OUTPUT_NAME_FORMAT"`

	// MetricsFile, when set, receives the Prometheus text exposition of the
	// run counters after each process command (node_exporter textfile format).
	MetricsFile string `yaml:"metrics_file" env:"METRICS_FILE"`

	// ArchiveRetentionDays removes archived files older than this many days.
	// Zero disables the sweep.
	ArchiveRetentionDays int `yaml:"archive_retention_days" env:"ARCHIVE_RETENTION_DAYS"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`

	// ContinueOnError keeps generating the remaining rows of a file when one
	// row fails validation. When false the whole file is rejected.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error" env:"CONTINUE_ON_ERROR"`
}

// =============================================================================
// MERCHANT PROFILE STRUCTURE
// =============================================================================

// Profile holds the payment settings of one payee (the owner of a business
// card page) plus the rules used to read that payee's order files.
type Profile struct {
	// =========================================================================
	// IDENTIFICATION
	// =========================================================================

	// Code is a short identifier used in logs, metrics and output names.
	Code string `yaml:"code"`

	// FullName is the display name of the profile owner.
	FullName string `yaml:"full_name"`

	// =========================================================================
	// PAYMENT SETTINGS
	// =========================================================================

	// PaymentKey is the registered Pix key, copied verbatim into every payload.
	PaymentKey string `yaml:"payment_key"`

	// Name is the beneficiary name printed by the payer's wallet. Falls back
	// to FullName.
	Name string `yaml:"beneficiary_name"`

	// City is the beneficiary city. Falls back to DefaultCity.
	City string `yaml:"beneficiary_city"`

	// CategoryCode is the merchant category code (field 52).
	// Default: "0000"
	CategoryCode string `yaml:"category_code"`

	// TransactionIDPrefix prefixes generated references ("TXN" + unix millis).
	// Default: "TXN"
	TransactionIDPrefix string `yaml:"transaction_id_prefix"`

	// Products are catalog items sold through a payment link; their price
	// becomes the payload amount.
	Products []Product `yaml:"products,omitempty"`

	// =========================================================================
	// FILE MATCHING RULES
	// =========================================================================

	// FileMatchingPatterns are glob patterns of the order files that belong
	// to this profile (e.g., "loja_*.csv", "*_pedidos.xlsx").
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// =========================================================================
	// PARSING AND MAPPING
	// =========================================================================

	CSVSettings  CSVSettings  `yaml:"csv_settings"`
	XLSXSettings XLSXSettings `yaml:"xlsx_settings"`

	// Columns maps order file headers to charge attributes.
	Columns ColumnMapping `yaml:"columns"`

	// TransformationRules are applied to each row before mapping.
	TransformationRules []TransformationRule `yaml:"transformation_rules"`
}

// DefaultCity is used when a profile has no beneficiary city.
const DefaultCity = "SAO PAULO"

// Product is a catalog entry with a fixed price.
type Product struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// =============================================================================
// CSV / XLSX SETTINGS
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter: "," (default), ";", "|", "\t" or an alias ("comma",
	// "semicolon", "pipe", "tab"). Spreadsheets exported in pt-BR locales
	// usually use ";".
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-line headers are joined
	// with a space.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Encoding: "UTF-8" (default), "ISO-8859-1" or "Windows-1252".
	Encoding string `yaml:"encoding"`

	// SkipEmptyRows drops rows whose cells are all blank.
	// Default: true
	SkipEmptyRows *bool `yaml:"skip_empty_rows,omitempty"`
}

// ShouldSkipEmptyRows reports the effective SkipEmptyRows setting.
func (s CSVSettings) ShouldSkipEmptyRows() bool {
	return s.SkipEmptyRows == nil || *s.SkipEmptyRows
}

// XLSXSettings contains settings for reading order workbooks.
type XLSXSettings struct {
	// Sheet is the worksheet to read. Empty reads the first sheet.
	Sheet string `yaml:"sheet"`
}

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// ColumnMapping names the order file columns. Every column is optional:
// a missing amount column produces open-amount payloads, missing name,
// city or key columns fall back to the profile.
type ColumnMapping struct {
	Amount    string `yaml:"amount"`
	Reference string `yaml:"reference"`
	Name      string `yaml:"name"`
	City      string `yaml:"city"`
	Key       string `yaml:"key"`

	// Product looks the amount up in the profile catalog by product name
	// when the amount column is empty.
	Product string `yaml:"product"`
}

// =============================================================================
// TRANSFORMATION RULES
// =============================================================================

// TransformationRule defines a chain of actions for one column.
type TransformationRule struct {
	// Field is the column header as it appears in the order file.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is one of:
	//   trim, uppercase, lowercase, replace, regex_replace, substring,
	//   extract_digits, remove_special_chars, normalize_whitespace,
	//   if_empty_use_default, if_empty_use_field, lookup,
	//   lookup_with_default, prepend_string, append_string,
	//   format_number, decimal_comma
	Type string `yaml:"type"`

	// Value is the parameter of the action (replacement, default value,
	// "start,length" for substring, decimal places for format_number...).
	Value string `yaml:"value"`

	// Find is the substring or pattern for replace / regex_replace.
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// MAIN CONFIGURATION LOADING
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file and applies
// the environment overrides.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. A missing file
//     is not an error; defaults and environment are used instead.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be parsed or a directory cannot be created.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	cfg := &MainConfig{ContinueOnError: true}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	applyMainConfigDefaults(cfg)

	if err := validateMainConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the BRCODE_ environment variables that are set.
func ApplyEnv(cfg *MainConfig) error {
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

func applyMainConfigDefaults(cfg *MainConfig) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = "./input_archive"
	}
	if cfg.OutputArchiveDir == "" {
		cfg.OutputArchiveDir = "./output_archive"
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = "./profiles"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = "{profile}_{original}_{uuid}.xml"
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
}

func validateMainConfig(cfg *MainConfig) error {
	dirs := []string{
		cfg.InputDir,
		cfg.OutputDir,
		cfg.InputArchiveDir,
		cfg.ProfilesDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return nil
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfiles loads all merchant profiles from a directory.
//
// RETURNS:
//   - A map of profiles keyed by code (or file name when the code is empty).
//   - An error if any file cannot be parsed or fails validation.
func LoadProfiles(profilesDir string) (map[string]*Profile, error) {
	profiles := make(map[string]*Profile)

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		profile, err := LoadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := profile.Code
		if key == "" {
			key = filepath.Base(file)
			profile.Code = key
		}
		if _, dup := profiles[key]; dup {
			return nil, fmt.Errorf("duplicate profile code %q in %s", key, file)
		}
		profiles[key] = profile
	}

	return profiles, nil
}

// LoadProfile loads and validates a single profile file.
func LoadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyProfileDefaults(&profile)
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

func applyProfileDefaults(p *Profile) {
	if p.CategoryCode == "" {
		p.CategoryCode = brcode.DefaultCategoryCode
	}
	if p.TransactionIDPrefix == "" {
		p.TransactionIDPrefix = "TXN"
	}

	if p.CSVSettings.Delimiter == "" {
		p.CSVSettings.Delimiter = ","
	}
	if p.CSVSettings.HeaderRows == 0 {
		p.CSVSettings.HeaderRows = 1
	}
	if p.CSVSettings.DataStartRow == 0 {
		p.CSVSettings.DataStartRow = p.CSVSettings.HeaderRows + 1
	}
	if p.CSVSettings.Encoding == "" {
		p.CSVSettings.Encoding = "UTF-8"
	}
}

// =============================================================================
// PROFILE ACCESSORS
// =============================================================================

// BeneficiaryName returns the name printed in the payload.
func (p *Profile) BeneficiaryName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.FullName
}

// BeneficiaryCity returns the city printed in the payload.
func (p *Profile) BeneficiaryCity() string {
	if p.City != "" {
		return p.City
	}
	return DefaultCity
}

// FindProduct returns the catalog entry with the given name.
func (p *Profile) FindProduct(name string) (Product, bool) {
	for _, product := range p.Products {
		if product.Name == name {
			return product, true
		}
	}
	return Product{}, false
}

// Validate reports configuration problems that would make every payload of
// this profile unusable.
func (p *Profile) Validate() error {
	if p.PaymentKey == "" {
		return fmt.Errorf("profile %q: payment_key is required", p.Code)
	}
	if p.BeneficiaryName() == "" {
		return fmt.Errorf("profile %q: beneficiary_name or full_name is required", p.Code)
	}
	if err := brcode.CheckCategoryCode(p.CategoryCode); err != nil {
		return fmt.Errorf("profile %q: category_code: %w", p.Code, err)
	}
	if p.CSVSettings.DataStartRow <= p.CSVSettings.HeaderRows {
		return fmt.Errorf("profile %q: data_start_row must come after the header rows", p.Code)
	}
	for _, pattern := range p.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("profile %q: invalid file pattern %q: %w", p.Code, pattern, err)
		}
	}
	return nil
}

// Matches reports whether fileName matches one of the profile patterns.
func (p *Profile) Matches(fileName string) bool {
	for _, pattern := range p.FileMatchingPatterns {
		if matched, err := filepath.Match(pattern, fileName); err == nil && matched {
			return true
		}
	}
	return false
}
