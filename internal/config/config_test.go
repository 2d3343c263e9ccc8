package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMainConfig_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RECHNUNG_DATA_DIR", filepath.Join(dir, "daten"))
	t.Setenv("RECHNUNG_INVOICES_DIR", filepath.Join(dir, "out"))

	cfg, err := LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TaxRate != 19 || cfg.PaymentDays != 14 || cfg.Currency != "EUR" || cfg.UnitCode != "HUR" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.LedgerPath() != filepath.Join(dir, "daten", "rechnungsnummer.json") {
		t.Fatalf("ledger path = %s", cfg.LedgerPath())
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Fatalf("lock timeout = %s", cfg.LockTimeout)
	}
	for _, d := range []string{cfg.DataDir, cfg.InvoicesDir, cfg.TempDir} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Fatalf("directory %s not created", d)
		}
	}
	if len(cfg.LogoCandidates()) != len(DefaultLogoFiles) {
		t.Fatalf("logo candidates = %v", cfg.LogoCandidates())
	}
}

func TestLoadMainConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "data_dir: " + filepath.Join(dir, "file") + "\n" +
		"invoices_dir: " + filepath.Join(dir, "inv") + "\n" +
		"payment_days: 30\n" +
		"currency: eur\n" +
		"lock_timeout: 2s\n" +
		"log_level: warn\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PaymentDays != 30 || cfg.Currency != "EUR" || cfg.LockTimeout != 2*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("env override lost: %s", cfg.LogLevel)
	}
	if cfg.LogConfig().Level != "debug" {
		t.Fatal("log config not derived")
	}
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RECHNUNG_DATA_DIR", dir)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("tax_rate: 150\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMainConfig(path); err == nil {
		t.Fatal("expected error for tax_rate 150")
	}

	if err := os.WriteFile(path, []byte("tax_rate: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMainConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMainConfig_DataDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RECHNUNG_DATA_DIR", filepath.Join(dir, "env"))
	t.Setenv("RECHNUNG_INVOICES_DIR", filepath.Join(dir, "out"))
	t.Setenv("RECHNUNG_TEMP_DIR", "")

	cfg, err := LoadMainConfig("", WithDataDir(filepath.Join(dir, "flag")))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != filepath.Join(dir, "flag") {
		t.Fatalf("data dir = %s", cfg.DataDir)
	}
	if cfg.CustomersPath() != filepath.Join(dir, "flag", "kunden.csv") {
		t.Fatalf("customers path = %s", cfg.CustomersPath())
	}
	if cfg.TempDir != filepath.Join(dir, "flag", "tmp") {
		t.Fatalf("temp dir = %s", cfg.TempDir)
	}
}
