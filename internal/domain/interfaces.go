package domain

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// Chunk is one indexed paragraph of a document together with the section title
// in force on its page. Title is empty when the page is not covered by any heading.
type Chunk struct {
	ID    string
	Text  string
	Title string
	Page  int
	Index int
}

// Metadata returns the metadata stored alongside the chunk in a collection.
func (c Chunk) Metadata() map[string]string {
	if c.Title == "" {
		return map[string]string{}
	}
	return map[string]string{"title": c.Title}
}

// SearchResult is a chunk returned by a collection query with its relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Message roles understood by the chat backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatModel streams a model's answer for a conversation.
// The returned sequence is finite and can only be consumed once.
type ChatModel interface {
	Chat(ctx context.Context, model string, messages []Message) iter.Seq2[string, error]
}

// ErrCollectionNotFound is returned by stores when a named collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// ValidationError reports unusable ingestion input. It is raised before any
// destructive change to the index.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
