// =============================================================================
// Rechnungstool - Main Entry Point
// =============================================================================
//
// USAGE:
//   rechnungstool invoice create   - Create an invoice (PDF + XRechnung)
//   rechnungstool invoice batch    - Create invoices from a CSV or XLSX table
//   rechnungstool customer add     - Add a customer
//   rechnungstool customer list    - List customers
//   rechnungstool company show|set - Show or edit the company profile
//   rechnungstool numbers          - Show the numbering state
//   rechnungstool reset            - Remove leftover temp files
//   rechnungstool version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : invoicing logic (numbering, totals, pdf, xmlwriter, ...)
//   - pkg/utils/ : file handling shared by the stores and writers
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/rechnungstool/cmd"
)

func main() {
	cmd.Execute()
}
