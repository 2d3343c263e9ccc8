// Package store converts the flat master-data files into typed records and
// back. The company profile is read-only; the customer file is rewritten
// under an exclusive lock.
package store

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/rechnungstool/internal/csvparser"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

var (
	// ErrCompanyMissing is returned when no company profile row exists.
	ErrCompanyMissing = errors.New("company profile missing")

	// ErrCustomerNotFound is returned for an unknown customer number.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Column names of unternehmen.csv.
const (
	colCompanyName      = "Firmenname"
	colStreet           = "Straße"
	colHouseNumber      = "Hausnummer"
	colZip              = "PLZ"
	colCity             = "Ort"
	colCountry          = "Land"
	colPhone            = "Telefon"
	colEmail            = "Email"
	colVATID            = "USt-IdNr"
	colTaxNumber        = "Steuernummer"
	colIBAN             = "IBAN"
	colBIC              = "BIC"
	colBank             = "Bank"
	colManagingDirector = "Geschäftsführer"
	colSmallBusiness    = "Kleinunternehmer"
)

// CompanyColumns is the header of unternehmen.csv.
var CompanyColumns = []string{
	colCompanyName, colStreet, colHouseNumber, colZip, colCity, colCountry,
	colPhone, colEmail, colVATID, colTaxNumber, colIBAN, colBIC, colBank,
	colManagingDirector, colSmallBusiness,
}

// LoadCompany reads the first record of the company file.
func LoadCompany(path string) (types.CompanyProfile, error) {
	data, err := csvparser.Parse(path, csvparser.DefaultSettings())
	if errors.Is(err, os.ErrNotExist) {
		return types.CompanyProfile{}, fmt.Errorf("%w: %s does not exist", ErrCompanyMissing, path)
	}
	if err != nil {
		return types.CompanyProfile{}, fmt.Errorf("load company profile: %w", err)
	}
	if len(data.Rows) == 0 {
		return types.CompanyProfile{}, fmt.Errorf("%w: %s has no data row", ErrCompanyMissing, path)
	}
	return CompanyFromRecord(data.Rows[0]), nil
}

// CompanyFromRecord maps one header-keyed row to a profile.
func CompanyFromRecord(r map[string]string) types.CompanyProfile {
	return types.CompanyProfile{
		Name:             r[colCompanyName],
		Street:           r[colStreet],
		HouseNumber:      r[colHouseNumber],
		ZipCode:          r[colZip],
		City:             r[colCity],
		Country:          r[colCountry],
		Phone:            r[colPhone],
		Email:            r[colEmail],
		VATID:            r[colVATID],
		TaxNumber:        r[colTaxNumber],
		IBAN:             r[colIBAN],
		BIC:              r[colBIC],
		BankName:         r[colBank],
		ManagingDirector: r[colManagingDirector],
		SmallBusiness:    ParseFlag(r[colSmallBusiness]),
	}
}

// CompanyToRecord is the inverse of CompanyFromRecord.
func CompanyToRecord(c types.CompanyProfile) map[string]string {
	flag := "nein"
	if c.SmallBusiness {
		flag = "ja"
	}
	return map[string]string{
		colCompanyName:      c.Name,
		colStreet:           c.Street,
		colHouseNumber:      c.HouseNumber,
		colZip:              c.ZipCode,
		colCity:             c.City,
		colCountry:          c.Country,
		colPhone:            c.Phone,
		colEmail:            c.Email,
		colVATID:            c.VATID,
		colTaxNumber:        c.TaxNumber,
		colIBAN:             c.IBAN,
		colBIC:              c.BIC,
		colBank:             c.BankName,
		colManagingDirector: c.ManagingDirector,
		colSmallBusiness:    flag,
	}
}

// SaveCompany writes the profile as the single row of the company file.
func SaveCompany(path string, c types.CompanyProfile) error {
	return csvparser.Write(path, CompanyColumns, []map[string]string{CompanyToRecord(c)})
}

// ParseFlag accepts ja, yes, true and 1 in any case.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ja", "yes", "true", "1":
		return true
	}
	return false
}
