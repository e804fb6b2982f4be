// Package comparison builds the lab report comparison prompt and runs it
// through a language model.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"lab-compare-be/pkg/llm"
)

// Comparer compares two extracted document texts.
type Comparer interface {
	Compare(ctx context.Context, first, second string) (string, error)
}

// PromptTemplate is the report schema handed to the model. Report and System
// are text/template sources with the named slots Language, First and Second.
type PromptTemplate struct {
	System   string
	Report   string
	Language string
}

// ComparisonError means the downstream inference call failed or timed out.
type ComparisonError struct {
	Timeout bool
	Err     error
}

func (e *ComparisonError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("comparison timed out: %v", e.Err)
	}
	return fmt.Sprintf("comparison failed: %v", e.Err)
}

func (e *ComparisonError) Unwrap() error {
	return e.Err
}

type promptData struct {
	Language string
	First    string
	Second   string
}

type Engine struct {
	provider llm.LLMProvider
	system   *template.Template
	report   *template.Template
	language string
	timeout  time.Duration
	options  []llm.Option
}

var _ Comparer = (*Engine)(nil)

// NewEngine parses the templates up front so a broken template fails at
// startup rather than on the first comparison.
func NewEngine(provider llm.LLMProvider, tmpl PromptTemplate, timeout time.Duration, options ...llm.Option) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("comparison engine requires an llm provider")
	}

	report, err := template.New("report").Option("missingkey=error").Parse(tmpl.Report)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	system, err := template.New("system").Option("missingkey=error").Parse(tmpl.System)
	if err != nil {
		return nil, fmt.Errorf("parse system template: %w", err)
	}

	return &Engine{
		provider: provider,
		system:   system,
		report:   report,
		language: tmpl.Language,
		timeout:  timeout,
		options:  options,
	}, nil
}

// BuildPrompt renders the user prompt and system instruction.
func (e *Engine) BuildPrompt(first, second string) (prompt, system string, err error) {
	data := promptData{Language: e.language, First: first, Second: second}

	var sb strings.Builder
	if err := e.report.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render report template: %w", err)
	}
	prompt = sb.String()

	sb.Reset()
	if err := e.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render system template: %w", err)
	}
	return prompt, sb.String(), nil
}

// Compare performs exactly one model request and returns its raw text.
func (e *Engine) Compare(ctx context.Context, first, second string) (string, error) {
	prompt, system, err := e.BuildPrompt(first, second)
	if err != nil {
		return "", &ComparisonError{Err: err}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	report, err := e.provider.Infer(ctx, prompt, system, e.options...)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		return "", &ComparisonError{Timeout: timedOut, Err: err}
	}
	if strings.TrimSpace(report) == "" {
		return "", &ComparisonError{Err: errors.New("model returned an empty report")}
	}
	return report, nil
}
