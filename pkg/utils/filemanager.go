// =============================================================================
// Rechnungstool - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the invoice tool:
//   - Directory management
//   - Output and working-copy file naming
//   - Atomic file replacement
//   - Cleanup of leftover temporary files
//
// NAMING:
//   - PDF:          <invoices_dir>/Rechnung_<number>.pdf
//   - Export XML:   <invoices_dir>/XRechnung_<number>.xml
//   - Working copy: <temp_dir>/temp_invoice_<number>_<uuid>.xml
//   Characters that are not valid in file names (":" and the like) are
//   replaced by "-".
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager resolves where invoice artifacts are written.
type FileManager struct {
	// DataDir holds the master data files and the ledger.
	DataDir string

	// InvoicesDir receives the PDF and the export XML.
	InvoicesDir string

	// TempDir receives the transient working copies.
	TempDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(dataDir, invoicesDir, tempDir string) *FileManager {
	return &FileManager{
		DataDir:     dataDir,
		InvoicesDir: invoicesDir,
		TempDir:     tempDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.DataDir, fm.InvoicesDir, fm.TempDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// SanitizeFileName replaces characters that are not allowed in file names on
// common file systems with "-".
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, name)
}

// PDFPath returns the output path of the printable invoice.
func (fm *FileManager) PDFPath(number string) string {
	return filepath.Join(fm.InvoicesDir, "Rechnung_"+SanitizeFileName(number)+".pdf")
}

// ExportPath returns the output path of the XRechnung export.
func (fm *FileManager) ExportPath(number string) string {
	return filepath.Join(fm.InvoicesDir, "XRechnung_"+SanitizeFileName(number)+".xml")
}

// WorkingCopyPath returns a fresh, collision-free path for the internal
// working copy of an invoice.
func (fm *FileManager) WorkingCopyPath(number string) string {
	name := fmt.Sprintf("temp_invoice_%s_%s.xml", SanitizeFileName(number), uuid.NewString()[:8])
	return filepath.Join(fm.TempDir, name)
}

// =============================================================================
// WRITING
// =============================================================================

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new content.
//
// PARAMETERS:
//   - path: The destination file.
//   - data: The complete new content.
//   - perm: The permission bits of the new file.
//
// RETURNS:
//   - An error if the temp file cannot be written or renamed.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// CLEANUP
// =============================================================================

// DefaultTempPatterns are the leftovers removed by the reset command.
var DefaultTempPatterns = []string{"temp_invoice_*.xml", "test_*.xml", "*.tmp", ".*.tmp"}

// CleanTempFiles removes regular files in dir that match any of patterns.
//
// RETURNS:
//   - The removed paths, in glob order.
//   - The first error encountered. Removal continues past errors.
func CleanTempFiles(dir string, patterns []string) ([]string, error) {
	var removed []string
	var firstErr error

	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return removed, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true

			info, err := os.Lstat(match)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if err := os.Remove(match); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to remove %s: %w", match, err)
				}
				continue
			}
			removed = append(removed, match)
		}
	}
	return removed, firstErr
}
