package pages

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

const (
	DefaultDPI      = 200
	DefaultLanguage = "eng"
)

// OCRSource rasterizes each PDF page with pdftoppm and reads it back with
// tesseract. A page tesseract cannot read is logged and kept empty.
type OCRSource struct {
	DPI       int
	Language  string
	Tesseract string
	Pdftoppm  string
	Logger    *slog.Logger
}

func (o *OCRSource) Pages(ctx context.Context, r io.Reader, progress ProgressFunc) ([]string, error) {
	path, cleanup, err := spool(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return o.pagesFromFile(ctx, path, progress)
}

func (o *OCRSource) pagesFromFile(ctx context.Context, path string, progress ProgressFunc) ([]string, error) {
	dir, err := os.MkdirTemp("", "docqa-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	defer os.RemoveAll(dir)

	images, err := o.rasterize(ctx, path, dir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, &domain.ValidationError{Reason: "document has no pages"}
	}

	pages := make([]string, len(images))
	for i, img := range images {
		text, err := o.recognize(ctx, img)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			o.logger().Warn("skipping page", "page", i+1, "error", err)
		default:
			pages[i] = text
		}
		if progress != nil {
			progress(i+1, len(images))
		}
	}
	return pages, nil
}

// rasterize writes one PNG per page into dir and returns them in page order.
func (o *OCRSource) rasterize(ctx context.Context, pdfPath, dir string) ([]string, error) {
	dpi := o.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	cmd := exec.CommandContext(ctx, binary(o.Pdftoppm, "pdftoppm"),
		"-r", strconv.Itoa(dpi), "-png", pdfPath, filepath.Join(dir, "page"))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	images, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	// pdftoppm pads page numbers to the width of the page count.
	sort.Slice(images, func(i, j int) bool {
		return pageNumber(images[i]) < pageNumber(images[j])
	})
	return images, nil
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	n, _ := strconv.Atoi(base[strings.LastIndexByte(base, '-')+1:])
	return n
}

func (o *OCRSource) recognize(ctx context.Context, image string) (string, error) {
	lang := o.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	cmd := exec.CommandContext(ctx, binary(o.Tesseract, "tesseract"), image, "stdout", "-l", lang)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (o *OCRSource) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func binary(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
