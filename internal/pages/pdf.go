package pages

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"docqa/internal/domain"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFSource reads the embedded text layer of a PDF. Pages that fail to
// extract are logged and kept as empty strings so numbering stays aligned.
type PDFSource struct {
	Logger *slog.Logger
}

func (p *PDFSource) Pages(_ context.Context, r io.Reader, progress ProgressFunc) ([]string, error) {
	path, cleanup, err := spool(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return p.pagesFromFile(path, progress)
}

func (p *PDFSource) pagesFromFile(path string, progress ProgressFunc) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, &domain.ValidationError{Reason: "document has no pages"}
	}
	pages := make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err != nil {
				p.logger().Warn("skipping page", "page", i, "error", err)
			} else {
				pages[i-1] = text
			}
		}
		if progress != nil {
			progress(i, total)
		}
	}
	return pages, nil
}

func (p *PDFSource) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// spool copies r to a temp file since ledongthuc/pdf and pdftoppm both need a
// path on disk.
func spool(r io.Reader) (string, func(), error) {
	tmp, err := os.CreateTemp("", "docqa-pdf-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	return path, cleanup, nil
}
