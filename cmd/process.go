// =============================================================================
// BR Code Generator - Process Command
// =============================================================================
//
// This file defines the 'process' command, which turns every order file of
// the input directory into a payload manifest.
//
// COMMAND USAGE:
//   brcode process [flags]
//
// FLAGS:
//   --dry-run  : Encode and validate without writing or archiving anything
//   --file     : Process a single file instead of scanning the input directory
//   --profile  : Only process files of this merchant profile. With --file the
//                profile is used even if the file name does not match it.
//
// PROCESSING PIPELINE:
//   1. Load configuration and merchant profiles
//   2. Discover order files (*.csv, *.xlsx) in the input directory
//   3. Match each file to a profile by its file matching patterns
//   4. Convert files concurrently, at most max_concurrency at a time
//   5. Write the run summary and the metrics textfile
//   6. Sweep old archives (archive_retention_days)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/converter"
	"github.com/ginjaninja78/brcode-generator/internal/metrics"
	"github.com/ginjaninja78/brcode-generator/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	dryRun      bool
	filePath    string
	profileCode string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Generate payload manifests for every order file",
	Long: `The process command scans the input directory for order files (.csv and
.xlsx), matches each one to a merchant profile and writes an XML manifest
with one payload per order.

Files are processed concurrently. A failure in one file does not affect the
others.

On success:
  - The manifest is written to the output directory (and copied to the
    output archive)
  - The order file is moved to the input archive
  - Rows that failed validation are listed in <file>_errors.log

On error:
  - The order file stays in the input directory`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Encode and validate without writing output files")
	processCmd.Flags().StringVar(&filePath, "file", "", "Process only this file")
	processCmd.Flags().StringVar(&profileCode, "profile", "", "Process only files of this merchant profile")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context, out io.Writer) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	mainConfig, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	profiles, err := loadProfiles(mainConfig)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", zap.Int("profiles", len(profiles)), zap.Bool("dry_run", dryRun))

	runner := &batchRunner{
		profiles:    profiles,
		mainConfig:  mainConfig,
		logger:      logger,
		metrics:     metrics.New(),
		dryRun:      dryRun,
		concurrency: mainConfig.MaxConcurrency,
	}

	if profileCode != "" {
		p, ok := profiles[profileCode]
		if !ok {
			return fmt.Errorf("unknown profile %q", profileCode)
		}
		runner.only = p
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
		runner.forceProfile = runner.only != nil
	} else {
		fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
		inputFiles, err = fm.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No order files found in the input directory.")
		return nil
	}

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	results, runErr := runner.Run(ctx, inputFiles)

	// =========================================================================
	// STEP 4: REPORT
	// =========================================================================

	summary := summarize(results, startTime, time.Now())
	printResults(out, results)
	fmt.Fprintln(out)
	if err := utils.FormatSummary(out, summary); err != nil {
		return err
	}

	if !dryRun {
		if path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir); err != nil {
			logger.Warn("failed to write summary log", zap.Error(err))
		} else {
			logger.Debug("wrote summary log", zap.String("path", path))
		}

		if err := runner.metrics.WriteTextfile(mainConfig.MetricsFile); err != nil {
			logger.Warn("failed to write metrics file", zap.String("path", mainConfig.MetricsFile), zap.Error(err))
		}

		if mainConfig.ArchiveRetentionDays > 0 {
			cleanArchives(mainConfig, logger, time.Now())
		}
	}

	return runErr
}

// =============================================================================
// BATCH RUNNER
// =============================================================================

// batchRunner converts files with bounded concurrency.
type batchRunner struct {
	profiles   map[string]*config.Profile
	mainConfig *config.MainConfig
	logger     *zap.Logger
	metrics    *metrics.Recorder
	dryRun     bool

	// concurrency is the maximum number of files in flight. Values below one
	// mean one.
	concurrency int

	// only restricts the run to one profile. When forceProfile is set the
	// files are not matched against its patterns.
	only         *config.Profile
	forceProfile bool

	// now is the converter clock; nil uses time.Now.
	now func() time.Time
}

// Run converts files and returns one result per file that belongs to the
// run, in input order. Files of other profiles (with --profile) are left
// out. When ctx is cancelled no new file is started; files that never ran
// get ctx's error.
func (r *batchRunner) Run(ctx context.Context, files []string) ([]converter.Result, error) {
	type job struct {
		path    string
		profile *config.Profile
	}

	var jobs []job
	for _, file := range files {
		profile := r.matchProfile(file)
		if r.only != nil && profile != r.only {
			r.logger.Debug("skipping file of another profile", zap.String("file", filepath.Base(file)))
			continue
		}
		jobs = append(jobs, job{path: file, profile: profile})
	}

	results := make([]converter.Result, len(jobs))
	started := make([]bool, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.concurrency))

	for i, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			results[i] = r.processFile(gctx, j.path, j.profile)
			return nil
		})
	}
	_ = g.Wait()

	for i, j := range jobs {
		if !started[i] {
			results[i] = converter.Result{FilePath: j.path, Error: ctx.Err()}
		}
	}
	return results, ctx.Err()
}

func (r *batchRunner) processFile(ctx context.Context, path string, profile *config.Profile) converter.Result {
	if profile == nil {
		r.logger.Warn("no matching profile", zap.String("file", filepath.Base(path)))
		return converter.Result{
			FilePath: path,
			Error:    fmt.Errorf("no matching profile found for %s", filepath.Base(path)),
		}
	}

	opts := []converter.Option{
		converter.WithMetrics(r.metrics),
		converter.WithDryRun(r.dryRun),
	}
	if r.now != nil {
		opts = append(opts, converter.WithClock(r.now))
	}
	return converter.New(path, profile, r.mainConfig, r.logger, opts...).Run(ctx)
}

// matchProfile returns the profile whose patterns match the file name. When
// several match, the lowest code wins.
func (r *batchRunner) matchProfile(path string) *config.Profile {
	if r.forceProfile {
		return r.only
	}

	codes := make([]string, 0, len(r.profiles))
	for code := range r.profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fileName := filepath.Base(path)
	for _, code := range codes {
		if r.profiles[code].Matches(fileName) {
			return r.profiles[code]
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func summarize(results []converter.Result, start, end time.Time) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		StartTime:  start,
		EndTime:    end,
		TotalFiles: len(results),
	}

	for _, result := range results {
		summary.TotalRows += result.Stats.RowsProcessed
		summary.PayloadsGenerated += result.Stats.PayloadsGenerated
		summary.RowsSkipped += result.Stats.Skipped
		summary.ValidationErrors += result.Stats.ValidationErrors

		if result.Success {
			summary.SuccessfulFiles++
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				OutputFile:  result.OutputFile,
				Profile:     result.Profile,
				Rows:        result.Stats.RowsProcessed,
				Payloads:    result.Stats.PayloadsGenerated,
				Skipped:     result.Stats.Skipped,
				ProcessTime: result.Stats.ProcessingTime,
			})
			continue
		}

		summary.FailedFiles++
		message := "not processed"
		if result.Error != nil {
			message = result.Error.Error()
		}
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: message,
		})
	}
	return summary
}

func printResults(out io.Writer, results []converter.Result) {
	for _, result := range results {
		name := filepath.Base(result.FilePath)
		switch {
		case !result.Success:
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, result.Error)
		case result.OutputFile == "":
			fmt.Fprintf(out, "  ✓ %s: %d payload(s), %d skipped (dry run)\n", name, result.Stats.PayloadsGenerated, result.Stats.Skipped)
		default:
			fmt.Fprintf(out, "  ✓ %s -> %s: %d payload(s), %d skipped\n", name, result.OutputFile, result.Stats.PayloadsGenerated, result.Stats.Skipped)
		}
	}
}

func cleanArchives(mainConfig *config.MainConfig, logger *zap.Logger, now time.Time) {
	maxAge := time.Duration(mainConfig.ArchiveRetentionDays) * 24 * time.Hour
	for _, dir := range []string{mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir} {
		removed, err := utils.CleanOldArchives(dir, maxAge, now)
		if err != nil {
			logger.Warn("failed to clean archive", zap.String("dir", dir), zap.Error(err))
			continue
		}
		if removed > 0 {
			logger.Info("removed old archive files", zap.String("dir", dir), zap.Int("removed", removed))
		}
	}
}
