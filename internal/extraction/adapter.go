package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"contractiq/internal/model"
)

var pdfMagic = []byte("%PDF-")

// AdapterConfig names the external binaries used for text extraction.
// Empty fields fall back to the PATH-resolved defaults.
type AdapterConfig struct {
	PdftotextBin string
	PdftoppmBin  string
	TesseractBin string
	OCRDpi       int
}

func (c *AdapterConfig) applyDefaults() {
	if c.PdftotextBin == "" {
		c.PdftotextBin = "pdftotext"
	}
	if c.PdftoppmBin == "" {
		c.PdftoppmBin = "pdftoppm"
	}
	if c.TesseractBin == "" {
		c.TesseractBin = "tesseract"
	}
	if c.OCRDpi <= 0 {
		c.OCRDpi = 300
	}
}

// Adapter turns raw PDF bytes into plain text, trying the embedded text
// layer first and falling back to rasterized OCR for scanned documents.
type Adapter struct {
	cfg    AdapterConfig
	runner Runner
}

func NewAdapter(cfg AdapterConfig) *Adapter {
	cfg.applyDefaults()
	return &Adapter{cfg: cfg, runner: execRunner{}}
}

// NewAdapterWithRunner is used by tests to stub the external binaries.
func NewAdapterWithRunner(cfg AdapterConfig, r Runner) *Adapter {
	cfg.applyDefaults()
	return &Adapter{cfg: cfg, runner: r}
}

// ExtractText extracts page-delimited text from the document bytes.
// It returns KindCorrupt for non-PDF input and KindUnreadable when no
// strategy yields any text.
func (a *Adapter) ExtractText(ctx context.Context, doc []byte) (string, error) {
	if !bytes.HasPrefix(doc, pdfMagic) {
		return "", model.Errorf(model.KindCorrupt, "document is not a valid PDF")
	}

	dir, err := os.MkdirTemp("", "contractiq-extract-*")
	if err != nil {
		return "", model.Errorf(model.KindTransient, "create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return "", model.Errorf(model.KindTransient, "write temp document: %v", err)
	}

	text, err := a.textLayer(ctx, path)
	if err == nil && text != "" {
		return text, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", model.Errorf(model.KindTransient, "text layer extraction: %v", ctx.Err())
		}
		log.Warn().Err(err).Msg("Text layer extraction failed, falling back to OCR")
	}

	text, err = a.rasterOCR(ctx, dir, path)
	if err != nil {
		if ctx.Err() != nil {
			return "", model.Errorf(model.KindTransient, "ocr extraction: %v", ctx.Err())
		}
		return "", model.Errorf(model.KindUnreadable, "ocr extraction: %v", err)
	}
	if text == "" {
		return "", model.Errorf(model.KindUnreadable, "document contains no extractable text")
	}
	return text, nil
}

// textLayer pulls the embedded text via pdftotext. Pages arrive
// form-feed separated on stdout.
func (a *Adapter) textLayer(ctx context.Context, path string) (string, error) {
	out, _, err := a.runner.Run(ctx, a.cfg.PdftotextBin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	pages := strings.Split(string(out), "\f")
	return joinPages(pages), nil
}

// rasterOCR renders each page to PNG and runs tesseract over the images.
func (a *Adapter) rasterOCR(ctx context.Context, dir, path string) (string, error) {
	prefix := filepath.Join(dir, "page")
	_, _, err := a.runner.Run(ctx, a.cfg.PdftoppmBin, "-r", fmt.Sprintf("%d", a.cfg.OCRDpi), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w", err)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", err
	}
	sort.Strings(images)
	if len(images) == 0 {
		return "", fmt.Errorf("pdftoppm produced no pages")
	}

	pages := make([]string, 0, len(images))
	for _, img := range images {
		out, _, err := a.runner.Run(ctx, a.cfg.TesseractBin, img, "stdout")
		if err != nil {
			return "", fmt.Errorf("tesseract %s: %w", filepath.Base(img), err)
		}
		pages = append(pages, string(out))
	}
	return joinPages(pages), nil
}

// joinPages drops blank pages and prefixes each remaining page with a
// numbered marker so downstream chunking can split on page boundaries.
func joinPages(pages []string) string {
	var b strings.Builder
	for i, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s", i+1, p)
	}
	return b.String()
}
