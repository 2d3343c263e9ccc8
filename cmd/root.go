// =============================================================================
// Rechnungstool - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (rechnungstool)
//   ├── invoiceCmd  (rechnungstool invoice create|batch)
//   ├── customerCmd (rechnungstool customer add|list)
//   ├── companyCmd  (rechnungstool company show|set)
//   ├── numbersCmd  (rechnungstool numbers)
//   ├── resetCmd    (rechnungstool reset)
//   └── versionCmd  (rechnungstool version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads a .env file from the working directory, if present
//   2. Loads config.yaml and the environment overrides
//   3. Applies --data-dir and --verbose
//   4. Sets up logging
//
//   A log file named by LOG_OUTPUT is closed when the command returns.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rechnungstool/internal/config"
	"github.com/ginjaninja78/rechnungstool/internal/logger"
	"github.com/ginjaninja78/rechnungstool/internal/numbering"
	"github.com/ginjaninja78/rechnungstool/internal/store"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces the debug log level.
var verbose bool

// dataDir overrides the configured data directory.
var dataDir string

// appConfig is loaded by the root command before a subcommand runs.
var appConfig *config.MainConfig

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "rechnungstool",
	Short: "Rechnungstool - German invoices as PDF and XRechnung",
	Long: `Rechnungstool creates German invoices for a single company. Every invoice
is written as a printable PDF and as an XRechnung (UBL 2.1) XML file.

Key Features:
  - Daily invoice numbers (YYYY-MM-DD-NN), never reused
  - Standard 19% VAT or small business exemption (§19 UStG)
  - Customer master data with generated customer numbers
  - Positions from the command line, CSV or XLSX files

Example Usage:
  rechnungstool customer add --company "Beispiel AG" --contact "Frau Schmidt" ...
  rechnungstool invoice create --customer K1A2B3C4D --item "Beratung;2;100"
  rechnungstool numbers`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the context passed to the subcommands, which releases file locks.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if closeErr := logger.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to close log file: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initConfig loads appConfig and configures the global logger.
func initConfig() error {
	envErr := godotenv.Load()

	cfg, err := config.LoadMainConfig(cfgFile, config.WithDataDir(dataDir))
	if err != nil {
		return err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := logger.Setup(cfg.LogConfig()); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	appConfig = cfg

	log := logger.WithComponent("cli")
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file loaded")
	}
	log.Debug().
		Str("config", cfgFile).
		Str("data_dir", cfg.DataDir).
		Str("invoices_dir", cfg.InvoicesDir).
		Msg("configuration loaded")
	return nil
}

// =============================================================================
// SHARED SERVICES
// =============================================================================

func newNumberEngine() *numbering.Engine {
	ledger := numbering.NewFileStore(appConfig.LedgerPath(),
		numbering.WithLockTimeout(appConfig.LockTimeout),
		numbering.WithLogger(logger.WithComponent("ledger")),
	)
	return numbering.NewEngine(ledger, logger.WithComponent("numbering"))
}

func newCustomerStore() *store.CustomerStore {
	return store.NewCustomerStore(appConfig.CustomersPath(), appConfig.LockTimeout, logger.WithComponent("customers"))
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&dataDir,
		"data-dir",
		"",
		"Directory with company profile, customers and ledger (overrides config)",
	)
}
