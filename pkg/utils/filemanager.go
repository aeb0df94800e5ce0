// =============================================================================
// BR Code Generator - File Manager Utility
// =============================================================================
//
// File handling around a batch run:
//   - discovery of order files (*.csv, *.xlsx) in the input directory
//   - manifest naming and atomic writes into the output directory
//   - archival of processed order files
//   - run summary files and the archive retention sweep
//
// ARCHIVAL STRATEGY:
//   - An order file is moved to input_archive once its manifest is written
//   - Manifests stay in the output directory; a copy goes to output_archive
//   - Files that fail stay where they are so they can be fixed and retried
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderFileExtensions are the input formats picked up by discovery.
var OrderFileExtensions = []string{".csv", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a batch run.
type FileManager struct {
	InputDir         string
	OutputDir        string
	InputArchiveDir  string
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2024/01/15/loja.csv
	UseTimestampSubdirs bool

	// Now is the clock used for archive subdirectories. Defaults to time.Now.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		Now:              time.Now,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir, fm.OutputArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the order files directly inside the input
// directory, sorted by name. Hidden files and spreadsheet lock files
// ("~$pedidos.xlsx") are ignored.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if IsOrderFile(name) {
			files = append(files, filepath.Join(fm.InputDir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// IsOrderFile reports whether the file extension is a supported input format.
func IsOrderFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range OrderFileExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// WriteOutputFile writes data under the output directory. The file is
// written to a temporary name first and renamed, so a reader never sees a
// partial manifest.
//
// RETURNS:
//   - The path of the written file.
//   - An error if the file cannot be written.
func (fm *FileManager) WriteOutputFile(name string, data []byte) (string, error) {
	path := filepath.Join(fm.OutputDir, name)

	tmp, err := os.CreateTemp(fm.OutputDir, ".tmp-"+name+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move output file into place: %w", err)
	}
	return path, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an order file to the input archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath, err := fm.prepareArchivePath(fm.InputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

// ArchiveOutputFile copies a manifest to the output archive. The manifest
// stays in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if fm.OutputArchiveDir == "" {
		return "", nil
	}
	archivePath, err := fm.prepareArchivePath(fm.OutputArchiveDir, filePath)
	if err != nil {
		return "", err
	}
	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}
	return archivePath, nil
}

func (fm *FileManager) prepareArchivePath(archiveDir, filePath string) (string, error) {
	dir := archiveDir
	if fm.UseTimestampSubdirs {
		now := fm.clock()
		dir = filepath.Join(archiveDir, now.Format("2006"), now.Format("01"), now.Format("02"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	return filepath.Join(dir, filepath.Base(filePath)), nil
}

func (fm *FileManager) clock() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands a manifest name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Date (YYYYMMDD)
//     {time}      - Time (HHMMSS)
//     any key of params, e.g. {profile} and {original}
//   - now: The time used by the time placeholders.
//   - params: Extra placeholder values.
//
// EXAMPLE:
//
//	format: "{profile}_{original}_{timestamp}.xml"
//	params: {"profile": "LOJA", "original": "pedidos_maio"}
//	output: "LOJA_pedidos_maio_20240115_143022.xml"
func GenerateOutputFileName(format string, now time.Time, params map[string]string) string {
	pairs := []string{
		"{uuid}", uuid.New().String(),
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	}
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", sanitizeFileName(value))
	}

	result := strings.NewReplacer(pairs...).Replace(format)
	if !strings.HasSuffix(strings.ToLower(result), ".xml") {
		result += ".xml"
	}
	return result
}

// sanitizeFileName keeps placeholder values from introducing directories.
func sanitizeFileName(s string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(s)
}

// BaseName returns the file name without directory and extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime         time.Time
	EndTime           time.Time
	TotalFiles        int
	SuccessfulFiles   int
	FailedFiles       int
	TotalRows         int
	PayloadsGenerated int
	RowsSkipped       int
	ValidationErrors  int
	ProcessedFiles    []ProcessedFileInfo
	FailedFilesList   []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully processed file.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	Profile     string
	Rows        int
	Payloads    int
	Skipped     int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to
// <outputDir>/processing_summary_<end time>.txt.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("processing_summary_%s.txt", summary.EndTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := FormatSummary(writer, summary); err != nil {
		return "", err
	}
	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// FormatSummary writes the human-readable summary of a run.
func FormatSummary(w io.Writer, summary ProcessingSummary) error {
	const rule = "================================================================================\n"
	const dash = "--------------------------------------------------------------------------------\n"

	var b strings.Builder
	b.WriteString("BR Code Generator - Processing Summary\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime))
	fmt.Fprintf(&b, "Statistics:\n"+
		"  Total Files:        %d\n"+
		"  Successful:         %d\n"+
		"  Failed:             %d\n"+
		"  Total Rows:         %d\n"+
		"  Payloads Generated: %d\n"+
		"  Rows Skipped:       %d\n"+
		"  Validation Errors:  %d\n\n",
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRows,
		summary.PayloadsGenerated,
		summary.RowsSkipped,
		summary.ValidationErrors)

	if len(summary.ProcessedFiles) > 0 {
		b.WriteString("Successful Files:\n" + dash)
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(&b, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(&b, "  Profile:      %s\n", pf.Profile)
			fmt.Fprintf(&b, "  Output:       %s\n", pf.OutputFile)
			fmt.Fprintf(&b, "  Rows:         %d\n", pf.Rows)
			fmt.Fprintf(&b, "  Payloads:     %d\n", pf.Payloads)
			fmt.Fprintf(&b, "  Skipped:      %d\n", pf.Skipped)
			fmt.Fprintf(&b, "  Process Time: %s\n\n", pf.ProcessTime)
		}
	}

	if len(summary.FailedFilesList) > 0 {
		b.WriteString("Failed Files:\n" + dash)
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(&b, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(&b, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	b.WriteString(rule + "End of Summary\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// CleanOldArchives removes archive files last modified before now-maxAge.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-maxAge)
	removed := 0

	err := filepath.WalkDir(archiveDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == archiveDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}
	return removed, nil
}
