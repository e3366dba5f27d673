// Package service exposes document ingestion and question answering to the
// CLI, the chat UI and the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"docqa/internal/answer"
	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/index"
	"docqa/internal/pages"
	"docqa/internal/summarizer"
	"docqa/internal/titlemap"
)

// SourceFunc picks the page source for an uploaded file.
type SourceFunc func(filename string) (pages.Source, error)

// TitleRange is one section of the ingested document.
type TitleRange struct {
	Pages string `json:"pages"`
	Title string `json:"title"`
}

// IngestReport describes a completed ingestion.
type IngestReport struct {
	Collection string       `json:"collection"`
	Pages      int          `json:"pages"`
	Chunks     int          `json:"chunks"`
	Titled     int          `json:"titled_chunks"`
	Sections   []TitleRange `json:"sections"`
	Summary    string       `json:"summary"`
}

// Status describes the live collection.
type Status struct {
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
}

type Options struct {
	Sources          SourceFunc
	DefaultModel     string
	SummarySentences int
	Logger           *slog.Logger
}

type Service struct {
	index      *index.Manager
	composer   *answer.Composer
	summarizer *summarizer.Summarizer
	sources    SourceFunc
	model      string
	sentences  int
	log        *slog.Logger
}

func New(idx *index.Manager, composer *answer.Composer, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	sources := opts.Sources
	if sources == nil {
		sources = func(filename string) (pages.Source, error) {
			return pages.ForFile(filename, pages.Options{Logger: log})
		}
	}
	return &Service{
		index:      idx,
		composer:   composer,
		summarizer: summarizer.New(),
		sources:    sources,
		model:      opts.DefaultModel,
		sentences:  opts.SummarySentences,
		log:        log,
	}
}

// UploadDocument extracts the pages of one document, maps section titles,
// chunks the pages and replaces the live collection with the result. The
// previous collection is untouched when the document yields no chunks.
func (s *Service) UploadDocument(ctx context.Context, r io.Reader, filename string, progress pages.ProgressFunc) (IngestReport, error) {
	start := time.Now()
	src, err := s.sources(filename)
	if err != nil {
		return IngestReport{}, err
	}
	texts, err := src.Pages(ctx, r, progress)
	if err != nil {
		return IngestReport{}, fmt.Errorf("extract pages: %w", err)
	}

	tm := titlemap.Build(texts)
	chunks := chunker.ChunkDocument(texts, tm, s.log)
	if len(chunks) == 0 {
		return IngestReport{}, &domain.ValidationError{Reason: "document produced no chunks"}
	}
	if err := s.index.Ingest(ctx, chunks); err != nil {
		return IngestReport{}, err
	}

	report := IngestReport{
		Collection: s.index.Name(),
		Pages:      len(texts),
		Chunks:     len(chunks),
		Summary:    s.summarizer.Preview(chunks, s.sentences),
	}
	for _, c := range chunks {
		if c.Title != "" {
			report.Titled++
		}
	}
	for _, e := range tm.Entries() {
		report.Sections = append(report.Sections, TitleRange{Pages: e.Range.String(), Title: e.Title})
	}
	s.log.Info("document ingested",
		"file", filename,
		"pages", report.Pages,
		"chunks", report.Chunks,
		"collection", report.Collection,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

// Respond streams an answer to the latest user message in history. An empty
// model selects the configured default.
func (s *Service) Respond(ctx context.Context, history []domain.Message, model string, useKnowledge bool) iter.Seq2[string, error] {
	if model == "" {
		model = s.model
	}
	return s.composer.Respond(ctx, history, model, useKnowledge)
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("count collection: %w", err)
	}
	return Status{Collection: s.index.Name(), Chunks: n}, nil
}
