// =============================================================================
// BR Code Generator - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   brcode version
//
// Version and BuildDate are set at build time:
//   go build -ldflags "-X 'github.com/ginjaninja78/brcode-generator/cmd.Version=1.2.0' \
//                      -X 'github.com/ginjaninja78/brcode-generator/cmd.BuildDate=2024-05-01'"
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
)

var Version = "1.0.0"

var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "BR Code Generator")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "GUI:        %s\n", brcode.DefaultGUI)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
