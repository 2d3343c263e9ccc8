package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputPaths(t *testing.T) {
	fm := NewFileManager("data", "out", "tmp")
	if got := fm.PDFPath("2025-09-26-01"); got != filepath.Join("out", "Rechnung_2025-09-26-01.pdf") {
		t.Fatalf("PDFPath = %s", got)
	}
	if got := fm.ExportPath("2025-09-26:01"); got != filepath.Join("out", "XRechnung_2025-09-26-01.xml") {
		t.Fatalf("ExportPath = %s", got)
	}
	a, b := fm.WorkingCopyPath("2025-09-26-01"), fm.WorkingCopyPath("2025-09-26-01")
	if a == b {
		t.Fatal("working copy paths must differ")
	}
	if !strings.HasPrefix(filepath.Base(a), "temp_invoice_2025-09-26-01_") {
		t.Fatalf("WorkingCopyPath = %s", a)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ledger.json")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Fatalf("content = %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestCleanTempFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"temp_invoice_1.xml", "test_a.xml", "x.tmp", "keep.xml", "Rechnung_1.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.tmp"), 0o755); err != nil {
		t.Fatal(err)
	}

	removed, err := CleanTempFiles(dir, DefaultTempPatterns)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 3 {
		t.Fatalf("removed %v", removed)
	}
	for _, kept := range []string{"keep.xml", "Rechnung_1.pdf", "dir.tmp"} {
		if _, err := os.Stat(filepath.Join(dir, kept)); err != nil {
			t.Errorf("%s was removed", kept)
		}
	}
}
