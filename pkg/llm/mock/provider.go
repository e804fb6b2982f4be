// Package mock provides an in-process LLMProvider for tests and local runs.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lab-compare-be/pkg/llm"
)

// Call records one Infer invocation.
type Call struct {
	Prompt            string
	SystemInstruction string
}

// MockProvider answers every request with Response, or Err when set.
// Delay simulates a slow backend and honours context cancellation.
type MockProvider struct {
	Response string
	Err      error
	Delay    time.Duration

	mu    sync.Mutex
	calls []Call
}

var _ llm.LLMProvider = (*MockProvider)(nil)

func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	var call Call
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			call.SystemInstruction = msg.Content
		case llm.RoleUser:
			call.Prompt = msg.Content
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", fmt.Errorf("mock inference: %w", ctx.Err())
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) Infer(ctx context.Context, prompt, systemInstruction string, opts ...llm.Option) (string, error) {
	return m.Chat(ctx, llm.InferMessages(prompt, systemInstruction), opts...)
}

// Calls returns a copy of the recorded invocations.
func (m *MockProvider) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
