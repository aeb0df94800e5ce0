// =============================================================================
// BR Code Generator - Main Entry Point
// =============================================================================
//
// USAGE:
//   brcode process   - Generate manifests for every order file
//   brcode generate  - Print one payload
//   brcode verify    - Check and decode a payload
//   brcode validate  - Validate configuration and profiles
//   brcode version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI commands (Cobra)
//   - pkg/brcode     : payload encoding, checksum, parsing (no I/O)
//   - internal/      : batch pipeline (config, parsers, validation, manifest)
//   - pkg/utils      : file discovery, archival, summaries
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/brcode-generator/cmd"
)

func main() {
	cmd.Execute()
}
