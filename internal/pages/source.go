// Package pages turns uploaded documents into ordered page texts.
package pages

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
)

// ProgressFunc is called after each page is extracted. It may be nil.
type ProgressFunc func(done, total int)

// Source extracts one string per page, in document order. Page i of the
// result is page i+1 of the document.
type Source interface {
	Pages(ctx context.Context, r io.Reader, progress ProgressFunc) ([]string, error)
}

// PDF extraction modes.
const (
	ModeText = "text"
	ModeOCR  = "ocr"
	ModeAuto = "auto"
)

// Options selects and configures the PDF extraction path.
type Options struct {
	Mode      string
	DPI       int
	Language  string
	Tesseract string
	Pdftoppm  string
	Logger    *slog.Logger
}

// ForFile picks a source for filename by its extension.
func ForFile(filename string, opts Options) (Source, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ocr := &OCRSource{
		DPI:       opts.DPI,
		Language:  opts.Language,
		Tesseract: opts.Tesseract,
		Pdftoppm:  opts.Pdftoppm,
		Logger:    logger,
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".txt", ".text":
		return TextSource{}, nil
	case ".pdf":
		switch opts.Mode {
		case ModeText:
			return &PDFSource{Logger: logger}, nil
		case ModeOCR:
			return ocr, nil
		case ModeAuto, "":
			return &AutoSource{Text: &PDFSource{Logger: logger}, OCR: ocr, Logger: logger}, nil
		default:
			return nil, fmt.Errorf("unknown pdf mode %q", opts.Mode)
		}
	default:
		return nil, fmt.Errorf("unsupported document type %q", ext)
	}
}

// TextSource reads plain text, one page per form-feed separated segment.
type TextSource struct{}

func (TextSource) Pages(_ context.Context, r io.Reader, progress ProgressFunc) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &domain.ValidationError{Reason: "document has no pages"}
	}
	pages := strings.Split(string(data), "\f")
	if progress != nil {
		progress(len(pages), len(pages))
	}
	return pages, nil
}

// AutoSource reads the PDF text layer and falls back to OCR when every page
// comes back blank, as with scanned documents.
type AutoSource struct {
	Text   *PDFSource
	OCR    *OCRSource
	Logger *slog.Logger
}

func (a *AutoSource) Pages(ctx context.Context, r io.Reader, progress ProgressFunc) ([]string, error) {
	path, cleanup, err := spool(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := a.Text.pagesFromFile(path, progress)
	if err != nil {
		return nil, err
	}
	if !allBlank(pages) {
		return pages, nil
	}
	if a.Logger != nil {
		a.Logger.Info("pdf has no text layer, running ocr", "pages", len(pages))
	}
	return a.OCR.pagesFromFile(ctx, path, progress)
}

func allBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
