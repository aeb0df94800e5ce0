// =============================================================================
// BR Code Generator - Generate Command
// =============================================================================
//
// COMMAND USAGE:
//   brcode generate --key K --name N --city C [--amount A] [--txid T]
//   brcode generate --profile P [--product NAME] [--amount A] [--txid T]
//
// With --profile the payment key, name, city and category code come from the
// merchant profile; explicit flags override them. --product takes the price
// of a catalog item as the amount.
//
// Without --txid the reference is <prefix><unix millis> ("TXN1700000000000").
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/brcode-generator/internal/config"
	"github.com/ginjaninja78/brcode-generator/internal/converter"
	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
)

// generateRequest holds the flags of the generate command.
type generateRequest struct {
	Profile  string
	Product  string
	Key      string
	Name     string
	City     string
	Amount   string
	TxID     string
	Category string
	Verify   bool
}

var genFlags generateRequest

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print one static Pix payload",
	Long: `Generate prints a single static Pix payload ("copia e cola").

Either pass the payee with --key, --name and --city, or load it from a
merchant profile with --profile. An empty or zero amount produces an
open-value payload where the payer types the amount.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var profile *config.Profile
		if genFlags.Profile != "" {
			mainConfig, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			profiles, err := loadProfiles(mainConfig)
			if err != nil {
				return err
			}
			p, ok := profiles[genFlags.Profile]
			if !ok {
				return fmt.Errorf("unknown profile %q", genFlags.Profile)
			}
			profile = p
		}

		payload, err := genFlags.payload(profile, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), payload)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	f := generateCmd.Flags()
	f.StringVar(&genFlags.Profile, "profile", "", "Merchant profile code")
	f.StringVar(&genFlags.Product, "product", "", "Catalog product whose price is the amount (requires --profile)")
	f.StringVar(&genFlags.Key, "key", "", "Pix key (e-mail, phone, CPF/CNPJ or random key)")
	f.StringVar(&genFlags.Name, "name", "", "Beneficiary name")
	f.StringVar(&genFlags.City, "city", "", "Beneficiary city")
	f.StringVar(&genFlags.Amount, "amount", "", "Amount in BRL, e.g. 10.50 (empty for an open amount)")
	f.StringVar(&genFlags.TxID, "txid", "", "Transaction reference")
	f.StringVar(&genFlags.Category, "category", "", "Merchant category code (default 0000)")
	f.BoolVar(&genFlags.Verify, "verify", false, "Parse the generated payload and check its checksum")
}

// payload resolves the request against an optional profile and encodes it.
func (r generateRequest) payload(profile *config.Profile, now time.Time) (string, error) {
	in := brcode.Input{
		PaymentKey:    r.Key,
		MerchantName:  r.Name,
		MerchantCity:  r.City,
		TransactionID: r.TxID,
	}
	category := r.Category
	prefix := "TXN"
	rawAmount := r.Amount

	if profile != nil {
		in.PaymentKey = firstNonEmpty(in.PaymentKey, profile.PaymentKey)
		in.MerchantName = firstNonEmpty(in.MerchantName, profile.BeneficiaryName())
		in.MerchantCity = firstNonEmpty(in.MerchantCity, profile.BeneficiaryCity())
		category = firstNonEmpty(category, profile.CategoryCode)
		prefix = profile.TransactionIDPrefix

		if r.Product != "" && rawAmount == "" {
			product, ok := profile.FindProduct(r.Product)
			if !ok {
				return "", fmt.Errorf("profile %q has no product %q", profile.Code, r.Product)
			}
			rawAmount = product.Price
		}
	} else if r.Product != "" {
		return "", fmt.Errorf("--product requires --profile")
	}

	if in.PaymentKey == "" {
		return "", fmt.Errorf("a payment key is required (--key or --profile)")
	}

	amount, err := converter.ParseAmount(rawAmount)
	if err != nil {
		return "", err
	}
	in.Amount = amount

	if in.TransactionID == "" {
		in.TransactionID = converter.GenerateReference(prefix, now)
	}

	var opts []brcode.Option
	if category != "" {
		opts = append(opts, brcode.WithCategoryCode(category))
	}
	payload, err := brcode.NewBuilder(opts...).Build(in)
	if err != nil {
		return "", err
	}

	if r.Verify {
		if err := brcode.Verify(payload); err != nil {
			return "", fmt.Errorf("generated payload failed verification: %w", err)
		}
	}
	return payload, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
