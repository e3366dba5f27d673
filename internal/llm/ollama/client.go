// Package ollama streams chat completions from an Ollama server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"docqa/internal/domain"
)

const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3"
)

// maxLine bounds a single NDJSON line of the chat stream.
const maxLine = 1 << 20

type Client struct {
	host       string
	httpClient *http.Client
}

// NewClient returns a client for the server at host. The HTTP client carries
// no overall timeout because answers stream for as long as the model writes;
// callers cancel through the context instead.
func NewClient(host string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{},
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

// Chat sends the conversation to /api/chat and yields the answer fragment by
// fragment. A failure is yielded once as the final element; fragments already
// yielded stay valid. Stopping the iteration early closes the connection.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if model == "" {
			model = DefaultModel
		}
		body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: true})
		if err != nil {
			yield("", fmt.Errorf("marshal chat request: %w", err))
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("build chat request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			yield("", fmt.Errorf("ollama chat request: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield("", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, errorText(msg)))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk chatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				yield("", fmt.Errorf("decode chat chunk: %w", err))
				return
			}
			if chunk.Error != "" {
				yield("", fmt.Errorf("ollama chat: %s", chunk.Error))
				return
			}
			if chunk.Message.Content != "" && !yield(chunk.Message.Content, nil) {
				return
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("read chat stream: %w", err))
			return
		}
		yield("", errors.New("ollama chat: stream ended before completion"))
	}
}

// errorText extracts the "error" field Ollama puts in failed responses.
func errorText(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// Healthy reports whether the server answers on /api/tags.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
