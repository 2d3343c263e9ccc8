package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rechnungstool/internal/csvparser"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

// Column names of kunden.csv.
const (
	colCustomerNumber = "Kundennummer"
	colCustomerKind   = "Kundentyp"
	colContactPerson  = "Ansprechpartner"
	colNotes          = "Bemerkungen"
)

// CustomerColumns is the header written to kunden.csv. Files without the
// Kundentyp column are still read; the kind is then derived from whether a
// contact person is present.
var CustomerColumns = []string{
	colCustomerNumber, colCustomerKind, colCompanyName, colContactPerson,
	colStreet, colHouseNumber, colZip, colCity, colCountry, colPhone, colEmail, colNotes,
}

const maxNumberAttempts = 64

// CustomerStore reads and appends customers in kunden.csv.
type CustomerStore struct {
	path        string
	lockTimeout time.Duration
	log         zerolog.Logger
	now         func() time.Time
	entropy     func() string
}

// NewCustomerStore returns a store for the file at path.
func NewCustomerStore(path string, lockTimeout time.Duration, log zerolog.Logger) *CustomerStore {
	return &CustomerStore{
		path:        path,
		lockTimeout: lockTimeout,
		log:         log,
		now:         time.Now,
		entropy:     uuid.NewString,
	}
}

// List returns all customers in file order. A missing file yields none.
func (s *CustomerStore) List(ctx context.Context) ([]types.Customer, error) {
	unlock, err := utils.LockFile(ctx, s.path, s.lockTimeout, false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.load()
}

// Get returns the customer with the given number.
func (s *CustomerStore) Get(ctx context.Context, number string) (types.Customer, error) {
	customers, err := s.List(ctx)
	if err != nil {
		return types.Customer{}, err
	}
	number = strings.TrimSpace(number)
	for _, c := range customers {
		if strings.EqualFold(c.Number, number) {
			return c, nil
		}
	}
	return types.Customer{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, number)
}

// Add assigns a new unique customer number to c and appends it to the file.
// Any number already set on c is ignored.
func (s *CustomerStore) Add(ctx context.Context, c types.Customer) (types.Customer, error) {
	if strings.TrimSpace(c.Name) == "" {
		return types.Customer{}, errors.New("customer name is required")
	}
	if c.Kind == "" {
		return types.Customer{}, errors.New("customer kind is required")
	}
	if c.Kind == types.CustomerIndividual {
		c.ContactPerson = ""
	}
	if strings.TrimSpace(c.Country) == "" {
		c.Country = "DE"
	}

	unlock, err := utils.LockFile(ctx, s.path, s.lockTimeout, true)
	if err != nil {
		return types.Customer{}, err
	}
	defer unlock()

	customers, err := s.load()
	if err != nil {
		return types.Customer{}, err
	}
	taken := make(map[string]bool, len(customers))
	for _, existing := range customers {
		taken[strings.ToUpper(existing.Number)] = true
	}

	c.Number = ""
	for i := 0; i < maxNumberAttempts; i++ {
		candidate := s.generateNumber(c)
		if !taken[candidate] {
			c.Number = candidate
			break
		}
	}
	if c.Number == "" {
		return types.Customer{}, errors.New("could not generate a unique customer number")
	}

	customers = append(customers, c)
	rows := make([]map[string]string, len(customers))
	for i, cust := range customers {
		rows[i] = CustomerToRecord(cust)
	}
	if err := csvparser.Write(s.path, CustomerColumns, rows); err != nil {
		return types.Customer{}, fmt.Errorf("save customers: %w", err)
	}

	s.log.Info().Str("customer", c.Number).Str("kind", string(c.Kind)).Msg("customer created")
	return c, nil
}

// generateNumber derives "K" + 8 upper-case hex digits from the address, the
// current time and random entropy.
func (s *CustomerStore) generateNumber(c types.Customer) string {
	seed := c.Name + c.Street + c.ZipCode + c.City +
		s.now().Format(time.RFC3339Nano) + s.entropy()
	sum := sha256.Sum256([]byte(seed))
	return "K" + strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

func (s *CustomerStore) load() ([]types.Customer, error) {
	data, err := csvparser.Parse(s.path, csvparser.DefaultSettings())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	customers := make([]types.Customer, 0, len(data.Rows))
	for _, row := range data.Rows {
		if row[colCustomerNumber] == "" {
			s.log.Warn().Str("name", row[colCompanyName]).Msg("skipping customer row without number")
			continue
		}
		customers = append(customers, CustomerFromRecord(row))
	}
	return customers, nil
}

// CustomerFromRecord maps one row of kunden.csv to a customer.
func CustomerFromRecord(r map[string]string) types.Customer {
	c := types.Customer{
		Number:        r[colCustomerNumber],
		Name:          r[colCompanyName],
		ContactPerson: r[colContactPerson],
		Street:        r[colStreet],
		HouseNumber:   r[colHouseNumber],
		ZipCode:       r[colZip],
		City:          r[colCity],
		Country:       r[colCountry],
		Phone:         r[colPhone],
		Email:         r[colEmail],
		Notes:         r[colNotes],
	}
	if kind, ok := types.ParseCustomerKind(r[colCustomerKind]); ok {
		c.Kind = kind
	} else if c.ContactPerson != "" {
		c.Kind = types.CustomerBusiness
	} else {
		c.Kind = types.CustomerIndividual
	}
	if c.Kind == types.CustomerIndividual {
		c.ContactPerson = ""
	}
	return c
}

// CustomerToRecord is the inverse of CustomerFromRecord.
func CustomerToRecord(c types.Customer) map[string]string {
	return map[string]string{
		colCustomerNumber: c.Number,
		colCustomerKind:   string(c.Kind),
		colCompanyName:    c.Name,
		colContactPerson:  c.ContactPerson,
		colStreet:         c.Street,
		colHouseNumber:    c.HouseNumber,
		colZip:            c.ZipCode,
		colCity:           c.City,
		colCountry:        c.Country,
		colPhone:          c.Phone,
		colEmail:          c.Email,
		colNotes:          c.Notes,
	}
}

// SortByName orders customers by name, then number.
func SortByName(customers []types.Customer) {
	sort.SliceStable(customers, func(i, j int) bool {
		a, b := strings.ToLower(customers[i].Name), strings.ToLower(customers[j].Name)
		if a != b {
			return a < b
		}
		return customers[i].Number < customers[j].Number
	})
}
