// =============================================================================
// BR Code Generator - Converter Module
// =============================================================================
//
// This module orchestrates the pipeline for a single order file, from
// parsing to the payload manifest.
//
// CONVERSION PIPELINE:
//   1. Parse the order file (CSV or XLSX, by extension)
//   2. Apply the profile's transformation rules to each row
//   3. Map rows to charges (column mapping + profile fallbacks)
//   4. Validate the charges
//   5. Encode one payload per accepted charge
//   6. Generate the XML manifest
//   7. Write the output file and the findings log
//   8. Archive the processed order file
//
// CONCURRENCY:
//   A Converter handles one file and is used by one goroutine. The batch
//   runner creates one per file; the builder and metrics recorder they
//   share are safe for concurrent use.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/csvparser"
	"github.com/ginjaninja78/brcode-generator/internal/metrics"
	"github.com/ginjaninja78/brcode-generator/internal/types"
	"github.com/ginjaninja78/brcode-generator/internal/validation"
	"github.com/ginjaninja78/brcode-generator/internal/xlsxparser"
	"github.com/ginjaninja78/brcode-generator/internal/xmlwriter"
	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
	"github.com/ginjaninja78/brcode-generator/pkg/utils"
)

// Failure reasons used as metric labels for rows that are not encoded.
const (
	ReasonTransform  = "transform"
	ReasonValidation = "validation"
	ReasonEncode     = "encode"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Profile is the code of the merchant profile used.
	Profile string

	// OutputFile is the path to the generated manifest. Empty on failure
	// and in dry runs.
	OutputFile string

	// ErrorLog is the path of the findings log, when there were findings.
	ErrorLog string

	Success bool
	Error   error

	// Charges are the encoded charges, in source order.
	Charges []types.Charge

	// Rejected are the rows that did not produce a payload.
	Rejected []xmlwriter.Rejection

	// Findings holds every validation error and warning.
	Findings []*validation.ValidationError

	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of data rows read from the file.
	RowsProcessed int

	// PayloadsGenerated is the number of payloads in the manifest.
	PayloadsGenerated int

	// Skipped is the number of rows without a payload.
	Skipped int

	ValidationErrors int
	Warnings         int

	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single order file.
type Converter struct {
	inputPath  string
	profile    *config.Profile
	mainConfig *config.MainConfig
	logger     *zap.Logger

	files   *utils.FileManager
	builder *brcode.Builder
	metrics *metrics.Recorder
	now     func() time.Time
	dryRun  bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithClock sets the clock used for generated references and file names.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

// WithMetrics records payload counters on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Converter) { c.metrics = r }
}

// WithDryRun encodes and validates without writing or archiving anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// WithBuilder replaces the payload builder. By default the builder uses the
// profile's category code.
func WithBuilder(b *brcode.Builder) Option {
	return func(c *Converter) { c.builder = b }
}

// WithFileManager replaces the file manager built from the main config.
func WithFileManager(fm *utils.FileManager) Option {
	return func(c *Converter) { c.files = fm }
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The order file (.csv or .xlsx).
//   - profile: The merchant profile the file belongs to.
//   - mainConfig: The main application configuration.
//   - logger: Structured logger; nil disables logging.
func New(inputPath string, profile *config.Profile, mainConfig *config.MainConfig, logger *zap.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Converter{
		inputPath:  inputPath,
		profile:    profile,
		mainConfig: mainConfig,
		logger:     logger.With(zap.String("file", filepath.Base(inputPath)), zap.String("profile", profile.Code)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		var bopts []brcode.Option
		if profile.CategoryCode != "" {
			bopts = append(bopts, brcode.WithCategoryCode(profile.CategoryCode))
		}
		c.builder = brcode.NewBuilder(bopts...)
	}
	if c.files == nil {
		c.files = utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir,
			mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
	}
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the file. Cancelling ctx stops encoding
// and nothing is written.
func (c *Converter) Run(ctx context.Context) (result Result) {
	start := c.now()
	result = Result{
		FilePath: c.inputPath,
		Profile:  c.profile.Code,
	}
	defer func() {
		result.Stats.ProcessingTime = c.now().Sub(start)
		c.metrics.ObserveFile(c.profile.Code, result.Stats.ProcessingTime)
	}()

	c.logger.Info("processing file")

	// =========================================================================
	// STEP 1: PARSE ORDER FILE
	// =========================================================================

	table, err := c.readTable()
	if err != nil {
		result.Error = fmt.Errorf("failed to parse %s: %w", filepath.Base(c.inputPath), err)
		return result
	}
	result.Stats.RowsProcessed = len(table.Rows)
	c.logger.Debug("parsed order file", zap.Int("rows", len(table.Rows)), zap.Strings("headers", table.Headers))

	// =========================================================================
	// STEP 2: APPLY TRANSFORMATION RULES
	// =========================================================================

	transformer, err := NewTransformer(c.profile.TransformationRules)
	if err != nil {
		result.Error = fmt.Errorf("invalid transformation rules: %w", err)
		return result
	}

	rows := make([]types.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		transformed, err := transformer.TransformRow(row)
		if err != nil {
			c.logger.Warn("row transformation failed", zap.Int("row", row.Number), zap.Error(err))
			result.Rejected = append(result.Rejected, xmlwriter.Rejection{Row: row.Number, Reason: err.Error()})
			c.metrics.PayloadFailed(c.profile.Code, ReasonTransform)
			continue
		}
		rows = append(rows, transformed)
	}

	// =========================================================================
	// STEP 3: MAP ROWS TO CHARGES
	// =========================================================================

	charges := NewOrderMapper(c.profile, start).MapAll(rows)

	// =========================================================================
	// STEP 4: VALIDATE
	// =========================================================================

	vr := validation.NewValidator().ValidateAll(charges)
	result.Findings = vr.Errors
	result.Stats.ValidationErrors = vr.ErrorCount
	result.Stats.Warnings = vr.WarningCount

	for _, finding := range vr.Errors {
		if finding.IsError() {
			c.logger.Warn("validation error", zap.Int("row", finding.RowNumber), zap.String("rule", finding.Rule), zap.String("message", finding.Message))
		} else {
			c.logger.Debug("validation warning", zap.Int("row", finding.RowNumber), zap.String("rule", finding.Rule), zap.String("message", finding.Message))
		}
	}

	if !vr.IsValid && !c.mainConfig.ContinueOnError {
		result.Error = fmt.Errorf("validation failed with %d errors", vr.ErrorCount)
		c.writeErrorLog(&result)
		return result
	}

	// =========================================================================
	// STEP 5: ENCODE PAYLOADS
	// =========================================================================

	reasons := firstErrors(vr.Errors)
	for i := range charges {
		if err := ctx.Err(); err != nil {
			result.Error = err
			return result
		}

		charge := &charges[i]
		if reason, rejected := reasons[charge.Row]; rejected {
			result.Rejected = append(result.Rejected, xmlwriter.Rejection{Row: charge.Row, Reason: reason})
			c.metrics.PayloadFailed(c.profile.Code, ReasonValidation)
			continue
		}

		payload, err := c.builder.Build(brcode.Input{
			PaymentKey:    charge.PaymentKey,
			MerchantName:  charge.Name,
			MerchantCity:  charge.City,
			Amount:        charge.Amount,
			TransactionID: charge.Reference,
		})
		if err != nil {
			c.logger.Warn("payload encoding failed", zap.Int("row", charge.Row), zap.Error(err))
			result.Rejected = append(result.Rejected, xmlwriter.Rejection{Row: charge.Row, Reason: err.Error()})
			c.metrics.PayloadFailed(c.profile.Code, ReasonEncode)
			continue
		}

		charge.Payload = payload
		result.Charges = append(result.Charges, *charge)
		c.metrics.PayloadGenerated(c.profile.Code)
	}

	result.Stats.PayloadsGenerated = len(result.Charges)
	result.Stats.Skipped = len(result.Rejected)

	if len(result.Rejected) > 0 && !c.mainConfig.ContinueOnError {
		result.Error = fmt.Errorf("%d rows could not be encoded", len(result.Rejected))
		c.writeErrorLog(&result)
		return result
	}

	// =========================================================================
	// STEP 6: GENERATE MANIFEST
	// =========================================================================

	manifest := &xmlwriter.Manifest{
		Profile:     c.profile.Code,
		Source:      filepath.Base(c.inputPath),
		GeneratedAt: start,
		Charges:     result.Charges,
		Rejected:    result.Rejected,
	}
	doc, err := xmlwriter.Generate(manifest)
	if err != nil {
		result.Error = fmt.Errorf("failed to generate manifest: %w", err)
		return result
	}

	if c.dryRun {
		c.logger.Info("dry run complete", zap.Int("payloads", result.Stats.PayloadsGenerated), zap.Int("skipped", result.Stats.Skipped))
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUT
	// =========================================================================

	fileName := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, start, map[string]string{
		"profile":  c.profile.Code,
		"original": utils.BaseName(c.inputPath),
	})
	outputPath, err := c.files.WriteOutputFile(fileName, doc)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputPath
	c.writeErrorLog(&result)

	c.logger.Info("wrote manifest",
		zap.String("output", outputPath),
		zap.Int("payloads", result.Stats.PayloadsGenerated),
		zap.Int("skipped", result.Stats.Skipped))

	// =========================================================================
	// STEP 8: ARCHIVE
	// =========================================================================
	// Archive failures are logged; the manifest is already in place.

	if archived, err := c.files.ArchiveInputFile(c.inputPath); err != nil {
		c.logger.Warn("failed to archive input file", zap.Error(err))
	} else {
		c.logger.Debug("archived input file", zap.String("path", archived))
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		c.logger.Warn("failed to archive output file", zap.Error(err))
	}

	result.Success = true
	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// readTable parses the input according to its extension.
func (c *Converter) readTable() (*types.Table, error) {
	switch ext := strings.ToLower(filepath.Ext(c.inputPath)); ext {
	case ".csv":
		return csvparser.Parse(c.inputPath, c.profile.CSVSettings)
	case ".xlsx":
		return xlsxparser.Parse(c.inputPath, c.profile.XLSXSettings.Sheet)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

// writeErrorLog writes the findings next to the manifest as
// <original>_errors.log. Dry runs write nothing.
func (c *Converter) writeErrorLog(result *Result) {
	if c.dryRun || len(result.Findings) == 0 {
		return
	}
	path := filepath.Join(c.mainConfig.OutputDir, utils.BaseName(c.inputPath)+"_errors.log")
	if err := validation.WriteErrorLog(result.Findings, filepath.Base(c.inputPath), path); err != nil {
		c.logger.Warn("failed to write error log", zap.Error(err))
		return
	}
	result.ErrorLog = path
}

// firstErrors maps each rejected row to the message of its first error.
func firstErrors(findings []*validation.ValidationError) map[int]string {
	reasons := make(map[int]string)
	for _, f := range findings {
		if !f.IsError() {
			continue
		}
		if _, seen := reasons[f.RowNumber]; !seen {
			reasons[f.RowNumber] = f.Message
		}
	}
	return reasons
}
