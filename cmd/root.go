// =============================================================================
// BR Code Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (brcode)
//   ├── processCmd  (brcode process)   batch: order files -> manifests
//   ├── generateCmd (brcode generate)  one payload from flags or a profile
//   ├── verifyCmd   (brcode verify)    checksum and decode a payload
//   ├── validateCmd (brcode validate)  check config and profiles
//   └── versionCmd  (brcode version)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose switches the log level to debug.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "brcode",
	Short: "BR Code Generator - static Pix payment payloads",
	Long: `brcode builds static Pix "copia e cola" payloads (EMV BR Code) for a
payee, either one at a time or in batch from order spreadsheets.

Key Features:
  - Standard TLV payloads with CRC-16/CCITT-FALSE checksum
  - Merchant profiles with column mapping and transformation rules
  - CSV (UTF-8, ISO-8859-1, Windows-1252) and XLSX order files
  - Per-row validation with a findings log
  - Concurrent batch processing and XML manifests

Example Usage:
  brcode generate --key user@bank.com --name "Joao da Silva" --city "Sao Paulo" --amount 10.00
  brcode generate --profile LOJA --product Camiseta
  brcode verify '00020126...6304ABCD'
  brcode process --dry-run
  brcode validate`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). SIGINT and
// SIGTERM cancel the command context so a batch stops scheduling files.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadEnvironment loads the main configuration and builds the logger from
// it. --verbose wins over the configured level.
func loadEnvironment() (*config.MainConfig, *zap.Logger, error) {
	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load main config: %w", err)
	}

	level := mainConfig.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, mainConfig.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return mainConfig, logger, nil
}

// loadProfiles loads every profile of the main configuration.
func loadProfiles(mainConfig *config.MainConfig) (map[string]*config.Profile, error) {
	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return profiles, nil
}
