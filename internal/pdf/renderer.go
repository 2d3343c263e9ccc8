// Package pdf renders the printed invoice.
package pdf

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

// Renderer produces invoice PDFs with an optional logo.
type Renderer struct {
	logo *Logo
	log  zerolog.Logger
}

// NewRenderer returns a renderer. logo may be nil.
func NewRenderer(logo *Logo, log zerolog.Logger) *Renderer {
	return &Renderer{logo: logo, log: log}
}

// Render returns the PDF document for doc.
func (r *Renderer) Render(doc types.Document) ([]byte, error) {
	c := newFpdfCanvas("Rechnung "+doc.Number.String(), doc.Date)
	Draw(c, doc, r.logo)

	data, err := c.output()
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", doc.Number, err)
	}
	return data, nil
}

// WriteFile renders doc and writes it to path.
func (r *Renderer) WriteFile(path string, doc types.Document) error {
	data, err := r.Render(doc)
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.log.Debug().Str("path", path).Int("bytes", len(data)).Msg("pdf written")
	return nil
}
