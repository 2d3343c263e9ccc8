// =============================================================================
// Rechnungstool - Customer Commands
// =============================================================================
//
// COMMAND USAGE:
//   rechnungstool customer add --company NAME [--contact PERSON] [address flags]
//   rechnungstool customer add --name PERSON [address flags]
//   rechnungstool customer list
//
// A new customer gets a generated number (K + 8 hex digits) which is printed
// and never changes afterwards.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rechnungstool/internal/store"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var newCustomer struct {
	company     string
	contact     string
	name        string
	street      string
	houseNumber string
	zipCode     string
	city        string
	country     string
	phone       string
	email       string
	notes       string
}

// =============================================================================
// CUSTOMER COMMAND DEFINITIONS
// =============================================================================

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customer master data",
}

var customerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a customer and print the generated customer number",
	Long: `Add a business customer (--company, optionally --contact) or a private
customer (--name). The customer number is generated and cannot be chosen.`,
	RunE: runCustomerAdd,
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all customers",
	RunE:  runCustomerList,
}

func runCustomerAdd(cmd *cobra.Command, args []string) error {
	c, err := customerFromFlags()
	if err != nil {
		return err
	}
	created, err := newCustomerStore().Add(cmd.Context(), c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Kunde angelegt: %s (%s)\n", created.Number, created.Name)
	return nil
}

func customerFromFlags() (types.Customer, error) {
	f := newCustomer
	c := types.Customer{
		Street:      f.street,
		HouseNumber: f.houseNumber,
		ZipCode:     f.zipCode,
		City:        f.city,
		Country:     f.country,
		Phone:       f.phone,
		Email:       f.email,
		Notes:       f.notes,
	}
	switch {
	case f.company != "" && f.name != "":
		return c, errors.New("use either --company or --name, not both")
	case f.company != "":
		c.Kind = types.CustomerBusiness
		c.Name = f.company
		c.ContactPerson = f.contact
	case f.name != "":
		if f.contact != "" {
			return c, errors.New("--contact is only valid with --company")
		}
		c.Kind = types.CustomerIndividual
		c.Name = f.name
	default:
		return c, errors.New("--company or --name is required")
	}
	return c, nil
}

func runCustomerList(cmd *cobra.Command, args []string) error {
	customers, err := newCustomerStore().List(cmd.Context())
	if err != nil {
		return err
	}
	if len(customers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Keine Kunden vorhanden.")
		return nil
	}
	store.SortByName(customers)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMMER\tTYP\tNAME\tANSPRECHPARTNER\tORT\tEMAIL")
	for _, c := range customers {
		kind := "Privat"
		if c.IsBusiness() {
			kind = "Firma"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Number, kind, c.Name, c.ContactPerson, c.CityLine(), c.Email)
	}
	return w.Flush()
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	f := customerAddCmd.Flags()
	f.StringVar(&newCustomer.company, "company", "", "Company name (business customer)")
	f.StringVar(&newCustomer.contact, "contact", "", "Contact person (business customer only)")
	f.StringVar(&newCustomer.name, "name", "", "Person's name (private customer)")
	f.StringVar(&newCustomer.street, "street", "", "Street")
	f.StringVar(&newCustomer.houseNumber, "house-number", "", "House number")
	f.StringVar(&newCustomer.zipCode, "zip", "", "Postal code")
	f.StringVar(&newCustomer.city, "city", "", "City")
	f.StringVar(&newCustomer.country, "country", "DE", "ISO country code")
	f.StringVar(&newCustomer.phone, "phone", "", "Phone number")
	f.StringVar(&newCustomer.email, "email", "", "Email address for the XRechnung endpoint")
	f.StringVar(&newCustomer.notes, "notes", "", "Free-text notes")

	customerCmd.AddCommand(customerAddCmd, customerListCmd)
	rootCmd.AddCommand(customerCmd)
}
