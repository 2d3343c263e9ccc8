// =============================================================================
// Rechnungstool - Validation Engine
// =============================================================================
//
// This module checks an invoice before a number is allocated and checks the
// internal working copy after it has been written.
//
// VALIDATION STRATEGY:
//   1. Item-level: every position needs a description, a positive quantity
//      and a non-negative unit price.
//   2. Document-level: at least one position, a three-letter currency and a
//      payment term that is not negative.
//   3. Party-level: missing optional party data is replaced by placeholders
//      in the XML documents. Each replacement is a warning.
//   4. Working copy: the parsed-back CII must agree with the invoice on
//      number, positions and amounts.
//
// ERROR HANDLING:
//   - Errors are collected, not thrown immediately.
//   - "error" severity stops invoice creation before numbering.
//   - "warning" severity is reported and logged, processing continues.
//
// =============================================================================

package validation

import (
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/internal/xmlwriter"
	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field names the checked value, e.g. "items[2].quantity".
	Field string

	// Value is the offending value.
	Value string

	// Rule is the check that was violated.
	Rule string

	// Message is a human-readable message.
	Message string

	// LineItemID is the 1-based position number, 0 for document fields.
	LineItemID int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.LineItemID > 0 {
		return fmt.Sprintf("[%s] Position %d, Field '%s': %s (value: '%s')",
			strings.ToUpper(e.Severity), e.LineItemID, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("[%s] Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity), e.Field, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all findings including warnings.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int
}

// Warnings returns only the warning findings.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// Fatal returns only the error findings.
func (r *ValidationResult) Fatal() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			out = append(out, e)
		}
	}
	return out
}

func (r *ValidationResult) add(e *ValidationError, opts ValidationOptions) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}
	r.WarningCount++
	if opts.TreatWarningsAsErrors {
		r.IsValid = false
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes placeholder substitutions fatal.
	TreatWarningsAsErrors bool

	// Placeholders are the values substituted for missing party data.
	Placeholders xmlwriter.Placeholders
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{Placeholders: xmlwriter.DefaultPlaceholders}
}

// Validator checks invoice documents.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// Validate checks doc with the default options.
func Validate(doc types.Document) *ValidationResult {
	return NewValidator().ValidateDocument(doc)
}

// =============================================================================
// DOCUMENT VALIDATION
// =============================================================================

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateDocument checks everything that can be checked before numbering.
// doc.Number and doc.Totals are not inspected.
func (v *Validator) ValidateDocument(doc types.Document) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	if len(doc.Items) == 0 {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "items",
			Rule:     "required",
			Message:  "Invoice has no positions",
		}, v.options)
	}
	for i, item := range doc.Items {
		for _, e := range v.ValidateLineItem(i+1, item) {
			result.add(e, v.options)
		}
	}

	if len(doc.Currency) != 3 {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "currency",
			Value:    doc.Currency,
			Rule:     "iso4217",
			Message:  "Currency must be a three-letter ISO code",
		}, v.options)
	}
	if doc.PaymentDays < 0 {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "payment_days",
			Value:    fmt.Sprint(doc.PaymentDays),
			Rule:     "range",
			Message:  "Payment term must not be negative",
		}, v.options)
	}

	for _, e := range v.validateParties(doc) {
		result.add(e, v.options)
	}

	return result
}

// ValidateLineItem checks one position. id is the 1-based position number.
func (v *Validator) ValidateLineItem(id int, item types.LineItem) []*ValidationError {
	var errors []*ValidationError
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", id, name) }

	if strings.TrimSpace(item.Description) == "" {
		errors = append(errors, &ValidationError{
			Severity:   SeverityError,
			Field:      field("description"),
			Rule:       "required",
			Message:    "Description is empty",
			LineItemID: id,
		})
	}
	if !item.Quantity.IsPositive() {
		errors = append(errors, &ValidationError{
			Severity:   SeverityError,
			Field:      field("quantity"),
			Value:      item.Quantity.String(),
			Rule:       "positive",
			Message:    "Quantity must be greater than zero",
			LineItemID: id,
		})
	}
	if item.UnitPrice.IsNegative() {
		errors = append(errors, &ValidationError{
			Severity:   SeverityError,
			Field:      field("unit_price"),
			Value:      item.UnitPrice.String(),
			Rule:       "non_negative",
			Message:    "Unit price must not be negative",
			LineItemID: id,
		})
	}
	return errors
}

// validateParties turns placeholder substitutions and malformed party data
// into warnings.
func (v *Validator) validateParties(doc types.Document) []*ValidationError {
	var errors []*ValidationError

	res := xmlwriter.Resolve(doc, v.options.Placeholders)
	for _, s := range res.Substitutions {
		errors = append(errors, &ValidationError{
			Severity: SeverityWarning,
			Field:    s.Field,
			Value:    s.Placeholder,
			Rule:     "placeholder",
			Message:  fmt.Sprintf("Missing value replaced by placeholder %q", s.Placeholder),
		})
	}

	for field, email := range map[string]string{
		"company.email":  doc.Company.Email,
		"customer.email": doc.Customer.Email,
	} {
		if email = strings.TrimSpace(email); email != "" && !emailPattern.MatchString(email) {
			errors = append(errors, &ValidationError{
				Severity: SeverityWarning,
				Field:    field,
				Value:    email,
				Rule:     "email",
				Message:  "Not a valid e-mail address",
			})
		}
	}

	if iban := format.CompactIBAN(doc.Company.IBAN); iban != "" && !ValidIBAN(iban) {
		errors = append(errors, &ValidationError{
			Severity: SeverityWarning,
			Field:    "company.iban",
			Value:    doc.Company.IBAN,
			Rule:     "iban_checksum",
			Message:  "IBAN check digits do not match",
		})
	}

	sortByField(errors)
	return errors
}

// ValidIBAN reports whether iban passes the ISO 13616 mod-97 check.
func ValidIBAN(iban string) bool {
	iban = format.CompactIBAN(iban)
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	rearranged := iban[4:] + iban[:4]

	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			fmt.Fprintf(&digits, "%d", r-'A'+10)
		default:
			return false
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// sortByField orders findings by field name so output is stable.
func sortByField(errors []*ValidationError) {
	sort.SliceStable(errors, func(i, j int) bool { return errors[i].Field < errors[j].Field })
}

// =============================================================================
// WORKING COPY VALIDATION
// =============================================================================

// ValidateWorkingCopy parses a written working copy and checks that it agrees
// with doc. Any disagreement is an error.
func (v *Validator) ValidateWorkingCopy(data []byte, doc types.Document) *ValidationResult {
	result := &ValidationResult{IsValid: true}
	mismatch := func(field, got, want string) {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    field,
			Value:    got,
			Rule:     "working_copy",
			Message:  fmt.Sprintf("Working copy has %q, expected %q", got, want),
		}, v.options)
	}

	cii, err := xmlwriter.DecodeCII(data)
	if err != nil {
		result.add(&ValidationError{
			Severity: SeverityError,
			Field:    "working_copy",
			Rule:     "xml",
			Message:  err.Error(),
		}, v.options)
		return result
	}

	if want := doc.Number.String(); cii.Number != want {
		mismatch("number", cii.Number, want)
	}
	if want := doc.Date.Format(format.CompactDate); cii.IssueDate != want {
		mismatch("issue_date", cii.IssueDate, want)
	}
	if len(cii.Trade.Lines) != len(doc.Items) {
		mismatch("items", fmt.Sprint(len(cii.Trade.Lines)), fmt.Sprint(len(doc.Items)))
		return result
	}
	for i, line := range cii.Trade.Lines {
		if !sameAmount(line.LineTotal, doc.Totals.LineNets[i]) {
			mismatch(fmt.Sprintf("items[%d].line_total", i+1), line.LineTotal, format.Amount(doc.Totals.LineNets[i]))
		}
	}

	sum := cii.Trade.Settlement.Sum
	if !sameAmount(sum.TaxBasis, doc.Totals.Net) {
		mismatch("totals.net", sum.TaxBasis, format.Amount(doc.Totals.Net))
	}
	if !sameAmount(sum.TaxTotal, doc.Totals.Tax) {
		mismatch("totals.tax", sum.TaxTotal, format.Amount(doc.Totals.Tax))
	}
	if !sameAmount(sum.GrandTotal, doc.Totals.Gross) {
		mismatch("totals.gross", sum.GrandTotal, format.Amount(doc.Totals.Gross))
	}
	if cat := cii.Trade.Settlement.Tax.Category; cat != string(doc.Totals.Category) {
		mismatch("totals.category", cat, string(doc.Totals.Category))
	}

	return result
}

// sameAmount also rejects amounts that are not written with two decimals.
func sameAmount(s string, want decimal.Decimal) bool {
	return s == format.Amount(want)
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to filePath atomically.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	return utils.WriteFileAtomic(filePath, []byte(FormatErrors(errors)), 0o644)
}
