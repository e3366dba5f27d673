package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/vectorstore"
)

// pointNamespace seeds the deterministic UUIDs used as point IDs; Qdrant only
// accepts unsigned integers or UUIDs.
var pointNamespace = uuid.MustParse("6f1c0a52-3c1e-4f7e-9d8e-2f0c6a4b9e11")

// errNotFound marks a 404 from Qdrant.
var errNotFound = errors.New("qdrant: not found")

// Storage is a minimal REST client to Qdrant. Logical collection names are
// aliases pointing at physical collections, so Promote is a single alias
// switch that readers see atomically.
type Storage struct {
	url      string
	apiKey   string
	distance string
	embedder embedding.Embedder
	client   *http.Client
}

type Config struct {
	URL      string
	APIKey   string
	Distance string
	Timeout  time.Duration
}

func NewStorage(cfg Config, emb embedding.Embedder) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	distance := cfg.Distance
	if distance == "" {
		distance = "Cosine"
	}
	return &Storage{
		url:      strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		distance: distance,
		embedder: emb,
		client:   &http.Client{Timeout: timeout},
	}
}

type aliasInfo struct {
	Alias      string `json:"alias_name"`
	Collection string `json:"collection_name"`
}

func (s *Storage) physical(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Storage) aliases(ctx context.Context) ([]aliasInfo, error) {
	var resp struct {
		Result struct {
			Aliases []aliasInfo `json:"aliases"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/aliases", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Result.Aliases, nil
}

// resolve returns the physical collection behind name and whether name is an alias.
func (s *Storage) resolve(ctx context.Context, name string) (target string, isAlias bool, err error) {
	aliases, err := s.aliases(ctx)
	if err != nil {
		return "", false, err
	}
	for _, a := range aliases {
		if a.Alias == name {
			return a.Collection, true, nil
		}
	}
	phys, err := s.physical(ctx)
	if err != nil {
		return "", false, err
	}
	for _, p := range phys {
		if p == name {
			return p, false, nil
		}
	}
	return "", false, nil
}

// Collections lists aliases plus physical collections no alias points at.
func (s *Storage) Collections(ctx context.Context) ([]string, error) {
	aliases, err := s.aliases(ctx)
	if err != nil {
		return nil, err
	}
	phys, err := s.physical(ctx)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]bool, len(aliases))
	var names []string
	for _, a := range aliases {
		targets[a.Collection] = true
		names = append(names, a.Alias)
	}
	for _, p := range phys {
		if !targets[p] {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Collection returns a handle to name, creating the physical collection when
// the embedding dimension is already known. Otherwise creation waits for the
// first Add.
func (s *Storage) Collection(ctx context.Context, name string) (vectorstore.Collection, error) {
	if name == "" {
		return nil, errors.New("collection name is empty")
	}
	h := &handle{store: s, name: name}
	if dim := s.embedder.Dimension(); dim > 0 {
		if err := h.ensure(ctx, dim); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (s *Storage) Delete(ctx context.Context, name string) error {
	target, isAlias, err := s.resolve(ctx, name)
	if err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("delete %q: %w", name, domain.ErrCollectionNotFound)
	}
	if isAlias {
		actions := []map[string]any{{"delete_alias": map[string]any{"alias_name": name}}}
		if err := s.do(ctx, http.MethodPost, "/collections/aliases", map[string]any{"actions": actions}, nil); err != nil {
			return err
		}
	}
	return s.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(target), nil, nil)
}

// Promote points the alias name at staging and drops the collection it used to point at.
func (s *Storage) Promote(ctx context.Context, staging, name string) error {
	stagingTarget, stagingAlias, err := s.resolve(ctx, staging)
	if err != nil {
		return err
	}
	if stagingTarget == "" || stagingAlias {
		return fmt.Errorf("promote %q: %w", staging, domain.ErrCollectionNotFound)
	}
	old, isAlias, err := s.resolve(ctx, name)
	if err != nil {
		return err
	}
	if old != "" && !isAlias {
		// a plain collection already holds the name; aliases cannot shadow it
		if err := s.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(old), nil, nil); err != nil {
			return err
		}
		old = ""
	}

	var actions []map[string]any
	if isAlias {
		actions = append(actions, map[string]any{"delete_alias": map[string]any{"alias_name": name}})
	}
	actions = append(actions, map[string]any{"create_alias": map[string]any{
		"collection_name": staging,
		"alias_name":      name,
	}})
	if err := s.do(ctx, http.MethodPost, "/collections/aliases", map[string]any{"actions": actions}, nil); err != nil {
		return err
	}
	if old != "" && old != staging {
		if err := s.do(ctx, http.MethodDelete, "/collections/"+url.PathEscape(old), nil, nil); err != nil {
			return fmt.Errorf("drop replaced collection %q: %w", old, err)
		}
	}
	return nil
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type handle struct {
	store *Storage
	name  string
}

func (h *handle) Name() string { return h.name }

func (h *handle) ensure(ctx context.Context, dimension int) error {
	target, _, err := h.store.resolve(ctx, h.name)
	if err != nil || target != "" {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": h.store.distance,
		},
	}
	return h.store.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(h.name), body, nil)
}

func (h *handle) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		vec, err := h.store.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", ch.ID, err)
		}
		points[i] = map[string]any{
			"id":     uuid.NewSHA1(pointNamespace, []byte(ch.ID)).String(),
			"vector": vec,
			"payload": map[string]any{
				"chunk_id": ch.ID,
				"text":     ch.Text,
				"title":    ch.Title,
				"page":     ch.Page,
				"index":    ch.Index,
			},
		}
	}
	if err := h.ensure(ctx, len(points[0]["vector"].([]float64))); err != nil {
		return err
	}
	body := map[string]any{"points": points}
	return h.store.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(h.name)+"/points?wait=true", body, nil)
}

func (h *handle) Query(ctx context.Context, text string, n int) ([]domain.SearchResult, error) {
	if n <= 0 {
		return nil, nil
	}
	vec, err := h.store.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	req := map[string]any{
		"vector":       vec,
		"limit":        n,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err = h.store.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(h.name)+"/points/search", req, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.Chunk{}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			chunk.ID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			chunk.Title = v
		}
		if v, ok := r.Payload["page"].(float64); ok {
			chunk.Page = int(v)
		}
		if v, ok := r.Payload["index"].(float64); ok {
			chunk.Index = int(v)
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

func (h *handle) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := h.store.do(ctx, http.MethodPost, "/collections/"+url.PathEscape(h.name)+"/points/count", map[string]any{"exact": true}, &resp)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, path, errNotFound)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
