package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"lab-compare-be/internal/dto"
	"lab-compare-be/pkg/extractor"
)

// recordingReplier keeps every reply in order.
type recordingReplier struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (r *recordingReplier) SendText(_ context.Context, _ string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	return r.err
}

func (r *recordingReplier) Replies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}

// fileTextExtractor returns the stored bytes as text. Content starting with
// "corrupt" fails like an unreadable PDF.
type fileTextExtractor struct {
	mu    sync.Mutex
	order []string
}

func (e *fileTextExtractor) Extract(_ context.Context, locator string) (string, error) {
	data, err := os.ReadFile(locator)
	if err != nil {
		return "", &extractor.ExtractionError{Locator: locator, Err: err}
	}
	text := string(data)
	if strings.HasPrefix(text, "corrupt") {
		return "", &extractor.ExtractionError{Locator: locator, Err: errors.New("not a pdf")}
	}

	e.mu.Lock()
	e.order = append(e.order, text)
	e.mu.Unlock()
	return text + "\n", nil
}

type compareCall struct {
	First, Second string
}

// fakeComparer returns report, or echoes both texts when report is empty.
type fakeComparer struct {
	mu     sync.Mutex
	calls  []compareCall
	report string
	err    error
}

func (c *fakeComparer) Compare(_ context.Context, first, second string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, compareCall{First: first, Second: second})
	if c.err != nil {
		return "", c.err
	}
	if c.report == "" {
		return first + "|" + second, nil
	}
	return c.report, nil
}

func (c *fakeComparer) Calls() []compareCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]compareCall(nil), c.calls...)
}

type fakePublisher struct {
	mu       sync.Mutex
	outcomes []dto.PublishIntakeOutcomeMessage
}

func (p *fakePublisher) Publish(context.Context, []byte) error { return nil }

func (p *fakePublisher) PublishOutcome(_ context.Context, outcome dto.PublishIntakeOutcomeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
	return nil
}

func (p *fakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.outcomes))
	for _, o := range p.outcomes {
		types = append(types, o.Type)
	}
	return types
}
