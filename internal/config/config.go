// =============================================================================
// Rechnungstool - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// SOURCES (later wins):
//   1. Built-in defaults
//   2. config.yaml (optional; a missing file is not an error)
//   3. Environment variables (a .env file is loaded by the CLI beforehand)
//
// ENVIRONMENT VARIABLES:
//   RECHNUNG_DATA_DIR      data directory
//   RECHNUNG_INVOICES_DIR  output directory for PDF and XML
//   RECHNUNG_TEMP_DIR      directory for working copies
//   LOG_LEVEL              trace, debug, info, warn, error
//   LOG_FORMAT             console, json
//   LOG_OUTPUT             stdout, stderr or a file path
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/rechnungstool/internal/logger"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// DataDir holds the company profile, the customer file and the ledger.
	// Default: "./daten"
	DataDir string `yaml:"data_dir"`

	// InvoicesDir receives Rechnung_<n>.pdf and XRechnung_<n>.xml.
	// Default: "./rechnungen"
	InvoicesDir string `yaml:"invoices_dir"`

	// TempDir receives the transient working copies.
	// Default: "<data_dir>/tmp"
	TempDir string `yaml:"temp_dir"`

	// =========================================================================
	// DATA FILES
	// =========================================================================
	// Relative file names are resolved against DataDir.

	// CompanyFile is the single-row company profile.
	// Default: "unternehmen.csv"
	CompanyFile string `yaml:"company_file"`

	// CustomersFile is the customer master file.
	// Default: "kunden.csv"
	CustomersFile string `yaml:"customers_file"`

	// LedgerFile maps invoice dates to the last issued sequence.
	// Default: "rechnungsnummer.json"
	LedgerFile string `yaml:"ledger_file"`

	// LogoFiles are tried in order; the first existing file is printed on the
	// invoice. Relative names are resolved against DataDir.
	LogoFiles []string `yaml:"logo_files"`

	// =========================================================================
	// INVOICE SETTINGS
	// =========================================================================

	// TaxRate is the standard VAT rate in percent.
	// Default: 19
	TaxRate float64 `yaml:"tax_rate"`

	// PaymentDays is the payment term.
	// Default: 14
	PaymentDays int `yaml:"payment_days"`

	// Currency is the ISO 4217 code of all amounts.
	// Default: "EUR"
	Currency string `yaml:"currency"`

	// UnitCode is the UN/ECE rec 20 unit for quantities in the export.
	// Default: "HUR" (hours)
	UnitCode string `yaml:"unit_code"`

	// LockTimeout bounds how long a command waits for the ledger or customer
	// file lock.
	// Default: 5s
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output"`
}

// DefaultLogoFiles is the logo search list.
var DefaultLogoFiles = []string{"logo.png", "logo.jpg", "logo.jpeg", "logo.gif", "Logo.PNG", "Logo.JPG"}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Override adjusts the configuration after the file and the environment
// have been applied, before defaults are filled in.
type Override func(*MainConfig)

// WithDataDir replaces the data directory, e.g. from a command line flag.
func WithDataDir(dir string) Override {
	return func(c *MainConfig) {
		if dir != "" {
			c.DataDir = dir
		}
	}
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to config.yaml. A missing file yields defaults.
//   - overrides: Applied last, in order.
//
// RETURNS:
//   - A pointer to the loaded MainConfig.
//   - An error if the file cannot be parsed or the settings are invalid.
func LoadMainConfig(configPath string, overrides ...Override) (*MainConfig, error) {
	config := &MainConfig{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults only.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(config)
	for _, o := range overrides {
		o(config)
	}
	applyMainConfigDefaults(config)

	if err := validateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides lets environment variables win over the file.
func applyEnvOverrides(config *MainConfig) {
	config.DataDir = getEnv("RECHNUNG_DATA_DIR", config.DataDir)
	config.InvoicesDir = getEnv("RECHNUNG_INVOICES_DIR", config.InvoicesDir)
	config.TempDir = getEnv("RECHNUNG_TEMP_DIR", config.TempDir)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)
	config.LogOutput = getEnv("LOG_OUTPUT", config.LogOutput)
}

// applyMainConfigDefaults sets default values for unspecified settings.
func applyMainConfigDefaults(config *MainConfig) {
	if config.DataDir == "" {
		config.DataDir = "./daten"
	}
	if config.InvoicesDir == "" {
		config.InvoicesDir = "./rechnungen"
	}
	if config.TempDir == "" {
		config.TempDir = filepath.Join(config.DataDir, "tmp")
	}
	if config.CompanyFile == "" {
		config.CompanyFile = "unternehmen.csv"
	}
	if config.CustomersFile == "" {
		config.CustomersFile = "kunden.csv"
	}
	if config.LedgerFile == "" {
		config.LedgerFile = "rechnungsnummer.json"
	}
	if len(config.LogoFiles) == 0 {
		config.LogoFiles = append([]string(nil), DefaultLogoFiles...)
	}
	if config.TaxRate == 0 {
		config.TaxRate = 19
	}
	if config.PaymentDays == 0 {
		config.PaymentDays = 14
	}
	if config.Currency == "" {
		config.Currency = "EUR"
	}
	if config.UnitCode == "" {
		config.UnitCode = "HUR"
	}
	if config.LockTimeout == 0 {
		config.LockTimeout = 5 * time.Second
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "console"
	}
	if config.LogOutput == "" {
		config.LogOutput = "stderr"
	}
}

// validateMainConfig validates the configuration and creates the directories.
func validateMainConfig(config *MainConfig) error {
	if config.TaxRate < 0 || config.TaxRate >= 100 {
		return fmt.Errorf("tax_rate must be between 0 and 100, got %v", config.TaxRate)
	}
	if config.PaymentDays < 0 {
		return fmt.Errorf("payment_days must not be negative")
	}
	if len(config.Currency) != 3 {
		return fmt.Errorf("currency must be an ISO 4217 code, got %q", config.Currency)
	}
	config.Currency = strings.ToUpper(config.Currency)

	for _, dir := range []string{config.DataDir, config.InvoicesDir, config.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Resolve returns name resolved against DataDir unless it is absolute.
func (c *MainConfig) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// CompanyPath is the resolved company profile path.
func (c *MainConfig) CompanyPath() string { return c.Resolve(c.CompanyFile) }

// CustomersPath is the resolved customer file path.
func (c *MainConfig) CustomersPath() string { return c.Resolve(c.CustomersFile) }

// LedgerPath is the resolved ledger path.
func (c *MainConfig) LedgerPath() string { return c.Resolve(c.LedgerFile) }

// LogoCandidates are the resolved logo search paths.
func (c *MainConfig) LogoCandidates() []string {
	paths := make([]string, len(c.LogoFiles))
	for i, name := range c.LogoFiles {
		paths[i] = c.Resolve(name)
	}
	return paths
}

// Rate returns TaxRate as a decimal.
func (c *MainConfig) Rate() decimal.Decimal {
	return decimal.NewFromFloat(c.TaxRate)
}

// LogConfig converts the logging settings for logger.Setup.
func (c *MainConfig) LogConfig() logger.LogConfig {
	lc := logger.DefaultConfig()
	lc.Level = c.LogLevel
	lc.Format = c.LogFormat
	lc.Output = c.LogOutput
	return lc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
