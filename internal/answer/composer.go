// Package answer composes grounded prompts and streams the model's reply.
package answer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"docqa/internal/domain"
)

const (
	knowledgePrompt = "Give the most accurate answer using your knowledge and the following additional information: \n"
	strictPrompt    = "Give the most accurate answer using only the following information: \n"
)

// ErrNoQuestion is yielded when the history holds no user message.
var ErrNoQuestion = errors.New("conversation has no user message")

// ContextRetriever returns the context string for a question.
type ContextRetriever interface {
	Query(ctx context.Context, text string, top int) (string, error)
}

type Composer struct {
	retriever ContextRetriever
	model     domain.ChatModel
	top       int
}

func NewComposer(retriever ContextRetriever, model domain.ChatModel, top int) *Composer {
	return &Composer{retriever: retriever, model: model, top: top}
}

// SystemPrompt builds the instruction placed ahead of the conversation.
func SystemPrompt(docs string, useKnowledge bool) string {
	if useKnowledge {
		return knowledgePrompt + docs
	}
	return strictPrompt + docs
}

// LastQuestion returns the content of the latest user message.
func LastQuestion(history []domain.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return history[i].Content, true
		}
	}
	return "", false
}

// Respond retrieves context for the latest user message, prepends the system
// instruction to the full history and streams the model's answer. The
// sequence is single use. Errors are yielded once and end the sequence.
func (c *Composer) Respond(ctx context.Context, history []domain.Message, model string, useKnowledge bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		question, ok := LastQuestion(history)
		if !ok {
			yield("", ErrNoQuestion)
			return
		}
		docs, err := c.retriever.Query(ctx, question, c.top)
		if err != nil {
			yield("", fmt.Errorf("retrieve context: %w", err))
			return
		}

		messages := make([]domain.Message, 0, len(history)+1)
		messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: SystemPrompt(docs, useKnowledge)})
		messages = append(messages, history...)

		for frag, err := range c.model.Chat(ctx, model, messages) {
			if !yield(frag, err) || err != nil {
				return
			}
		}
	}
}

// Accumulate drains seq into one string. On error the text received so far
// is returned together with the error.
func Accumulate(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for frag, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}
