package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// Logo box on the first page, in millimetres.
const (
	logoX      = 150.0
	logoY      = 5.0
	logoWidth  = 40.0
	logoHeight = 20.0
)

// logoMaxPixels bounds the embedded image; about 250 dpi across the box.
const logoMaxPixels = 400

// Logo is a decoded, downscaled company logo re-encoded as PNG.
type Logo struct {
	Name   string
	Path   string
	PNG    []byte
	Width  int
	Height int
}

// Fit returns the offset and size that place the logo inside a w x h box
// centred and with its aspect ratio kept.
func (l *Logo) Fit(w, h float64) (dx, dy, dw, dh float64) {
	if l.Width <= 0 || l.Height <= 0 {
		return 0, 0, w, h
	}
	scale := w / float64(l.Width)
	if s := h / float64(l.Height); s < scale {
		scale = s
	}
	dw = float64(l.Width) * scale
	dh = float64(l.Height) * scale
	return (w - dw) / 2, (h - dh) / 2, dw, dh
}

// LoadLogo decodes the image at path, limits it to logoMaxPixels on its
// longer side and re-encodes it as PNG.
func LoadLogo(path string) (*Logo, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open logo %s: %w", path, err)
	}
	img := imaging.Fit(src, logoMaxPixels, logoMaxPixels, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode logo %s: %w", path, err)
	}

	b := img.Bounds()
	return &Logo{
		Name:   "logo-" + filepath.Base(path),
		Path:   path,
		PNG:    buf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// FindLogo returns the first loadable logo among candidates. A missing or
// broken logo is not an error: the invoice is rendered without it and the
// reason is logged.
func FindLogo(candidates []string, log zerolog.Logger) *Logo {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		logo, err := LoadLogo(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("logo could not be loaded")
			continue
		}
		log.Debug().Str("path", path).Int("width", logo.Width).Int("height", logo.Height).Msg("logo loaded")
		return logo
	}
	log.Info().Strs("searched", candidates).Msg("no logo found, rendering without")
	return nil
}
