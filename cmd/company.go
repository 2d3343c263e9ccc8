// =============================================================================
// Rechnungstool - Company Commands
// =============================================================================
//
// COMMAND USAGE:
//   rechnungstool company show
//   rechnungstool company set --name NAME [flags]
//
// The company profile is the single data row of unternehmen.csv. 'set' only
// changes the fields whose flags are given.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/logger"
	"github.com/ginjaninja78/rechnungstool/internal/store"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Show or edit the company profile",
}

var companyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the company profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := store.LoadCompany(appConfig.CompanyPath())
		if err != nil {
			return err
		}
		printCompany(cmd.OutOrStdout(), c)
		return nil
	},
}

var companySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update the company profile",
	RunE:  runCompanySet,
}

// companyFields maps flag names to profile fields.
var companyFields = []struct {
	flag  string
	usage string
	field func(*types.CompanyProfile) *string
}{
	{"name", "Company name", func(c *types.CompanyProfile) *string { return &c.Name }},
	{"street", "Street", func(c *types.CompanyProfile) *string { return &c.Street }},
	{"house-number", "House number", func(c *types.CompanyProfile) *string { return &c.HouseNumber }},
	{"zip", "Postal code", func(c *types.CompanyProfile) *string { return &c.ZipCode }},
	{"city", "City", func(c *types.CompanyProfile) *string { return &c.City }},
	{"country", "ISO country code", func(c *types.CompanyProfile) *string { return &c.Country }},
	{"phone", "Phone number", func(c *types.CompanyProfile) *string { return &c.Phone }},
	{"email", "Email address", func(c *types.CompanyProfile) *string { return &c.Email }},
	{"vat-id", "USt-IdNr", func(c *types.CompanyProfile) *string { return &c.VATID }},
	{"tax-number", "Steuernummer", func(c *types.CompanyProfile) *string { return &c.TaxNumber }},
	{"iban", "IBAN", func(c *types.CompanyProfile) *string { return &c.IBAN }},
	{"bic", "BIC", func(c *types.CompanyProfile) *string { return &c.BIC }},
	{"bank", "Bank name", func(c *types.CompanyProfile) *string { return &c.BankName }},
	{"managing-director", "Managing director", func(c *types.CompanyProfile) *string { return &c.ManagingDirector }},
}

func runCompanySet(cmd *cobra.Command, args []string) error {
	path := appConfig.CompanyPath()
	c, err := store.LoadCompany(path)
	if err != nil && !errors.Is(err, store.ErrCompanyMissing) {
		return err
	}

	flags := cmd.Flags()
	for _, f := range companyFields {
		if flags.Changed(f.flag) {
			v, _ := flags.GetString(f.flag)
			*f.field(&c) = v
		}
	}
	if flags.Changed("small-business") {
		c.SmallBusiness, _ = flags.GetBool("small-business")
	}
	if c.Name == "" {
		return errors.New("--name is required for a new company profile")
	}

	if err := store.SaveCompany(path, c); err != nil {
		return err
	}
	log := logger.WithComponent("company")
	log.Info().Str("path", path).Bool("small_business", c.SmallBusiness).Msg("company profile saved")
	printCompany(cmd.OutOrStdout(), c)
	return nil
}

func printCompany(w io.Writer, c types.CompanyProfile) {
	fmt.Fprintln(w, c.Name)
	fmt.Fprintln(w, c.StreetLine())
	fmt.Fprintln(w, c.CityLine())
	if c.Country != "" && c.Country != "DE" {
		fmt.Fprintln(w, c.Country)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Telefon:          %s\n", c.Phone)
	fmt.Fprintf(w, "E-Mail:           %s\n", c.Email)
	fmt.Fprintf(w, "USt-IdNr:         %s\n", c.VATID)
	fmt.Fprintf(w, "Steuernummer:     %s\n", c.TaxNumber)
	fmt.Fprintf(w, "IBAN:             %s\n", format.IBAN(c.IBAN))
	fmt.Fprintf(w, "BIC:              %s\n", c.BIC)
	fmt.Fprintf(w, "Bank:             %s\n", c.BankName)
	fmt.Fprintf(w, "Geschäftsführer:  %s\n", c.ManagingDirector)

	regime := "Regelbesteuerung (19% USt)"
	if c.SmallBusiness {
		regime = "Kleinunternehmer nach §19 UStG"
	}
	fmt.Fprintf(w, "Besteuerung:      %s\n", regime)
}

// addCompanyFlags registers one flag per profile field on cmd.
func addCompanyFlags(cmd *cobra.Command) {
	for _, f := range companyFields {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().Bool("small-business", false, "Small business exemption (§19 UStG)")
}

func init() {
	addCompanyFlags(companySetCmd)

	companyCmd.AddCommand(companyShowCmd, companySetCmd)
	rootCmd.AddCommand(companyCmd)
}
