package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Infer sends one prompt with a system instruction as a single
	// request/response call. No retries, no streaming.
	Infer(ctx context.Context, prompt, systemInstruction string, options ...Option) (string, error)
}

// InferMessages builds the history used by chat-style providers for Infer.
func InferMessages(prompt, systemInstruction string) []Message {
	history := make([]Message, 0, 2)
	if systemInstruction != "" {
		history = append(history, Message{Role: RoleSystem, Content: systemInstruction})
	}
	return append(history, Message{Role: RoleUser, Content: prompt})
}
