// =============================================================================
// BR Code Generator - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   brcode validate
//
// Loads the main configuration and every merchant profile, then encodes a
// sample open-amount payload per profile. A profile that cannot produce a
// payload (empty name after folding, key too long) is reported here instead
// of failing every row of a batch.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and merchant profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, logger, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		profiles, err := loadProfiles(mainConfig)
		if err != nil {
			return err
		}
		return checkProfiles(cmd.OutOrStdout(), mainConfig, profiles)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// checkProfiles prints one line per profile and fails if any is unusable.
func checkProfiles(out io.Writer, mainConfig *config.MainConfig, profiles map[string]*config.Profile) error {
	fmt.Fprintf(out, "Config:   input=%s output=%s profiles=%s\n", mainConfig.InputDir, mainConfig.OutputDir, mainConfig.ProfilesDir)
	fmt.Fprintf(out, "Profiles: %d\n", len(profiles))

	codes := make([]string, 0, len(profiles))
	for code := range profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	folder := brcode.ASCIIFolder{}
	failed := 0
	for _, code := range codes {
		p := profiles[code]
		var opts []brcode.Option
		if p.CategoryCode != "" {
			opts = append(opts, brcode.WithCategoryCode(p.CategoryCode))
		}
		_, err := brcode.NewBuilder(opts...).Build(brcode.Input{
			PaymentKey:    p.PaymentKey,
			MerchantName:  p.BeneficiaryName(),
			MerchantCity:  p.BeneficiaryCity(),
			TransactionID: p.TransactionIDPrefix,
		})
		if err != nil {
			failed++
			fmt.Fprintf(out, "  ✗ %s: %v\n", code, err)
			continue
		}
		fmt.Fprintf(out, "  ✓ %s: %s / %s (%d pattern(s))\n", code,
			brcode.Truncate(folder.Normalize(p.BeneficiaryName()), brcode.MaxNameLen),
			brcode.Truncate(folder.Normalize(p.BeneficiaryCity()), brcode.MaxCityLen),
			len(p.FileMatchingPatterns))
	}

	if failed > 0 {
		return fmt.Errorf("%d profile(s) cannot produce payloads", failed)
	}
	fmt.Fprintln(out, "Configuration OK")
	return nil
}
