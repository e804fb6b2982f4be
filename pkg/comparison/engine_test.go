package comparison

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lab-compare-be/internal/constant"
	"lab-compare-be/pkg/llm/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTemplate() PromptTemplate {
	return PromptTemplate{
		System:   constant.ComparisonSystemInstructionV1,
		Report:   constant.ComparisonPromptV1,
		Language: "English",
	}
}

func TestEngine_CompareSingleCall(t *testing.T) {
	provider := mock.NewMockProvider("Report 1\nTitle: CBC\n\nSummary:\nstable")
	engine, err := NewEngine(provider, defaultTemplate(), time.Second)
	require.NoError(t, err)

	got, err := engine.Compare(context.Background(), "HGB 140 g/L", "HGB 120 g/L")
	require.NoError(t, err)

	assert.Equal(t, "Report 1\nTitle: CBC\n\nSummary:\nstable", got)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Report 1:\nHGB 140 g/L")
	assert.Contains(t, calls[0].Prompt, "Report 2:\nHGB 120 g/L")
	assert.Less(t, strings.Index(calls[0].Prompt, "HGB 140"), strings.Index(calls[0].Prompt, "HGB 120"))
	assert.Contains(t, calls[0].Prompt, "Do not omit any measured value")
	assert.Contains(t, calls[0].Prompt, "(reference interval: <range>)")
	assert.Equal(t, "You are a general practitioner. You always answer in English.", calls[0].SystemInstruction)
}

func TestEngine_ReturnsRawResponse(t *testing.T) {
	raw := "  **not trimmed**\n"
	engine, err := NewEngine(mock.NewMockProvider(raw), defaultTemplate(), time.Second)
	require.NoError(t, err)

	got, err := engine.Compare(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestEngine_CustomTemplate(t *testing.T) {
	provider := mock.NewMockProvider("ok")
	engine, err := NewEngine(provider, PromptTemplate{
		System:   "lang={{.Language}}",
		Report:   "A={{.First}};B={{.Second}}",
		Language: "Russian",
	}, 0)
	require.NoError(t, err)

	_, err = engine.Compare(context.Background(), "x", "y")
	require.NoError(t, err)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "A=x;B=y", calls[0].Prompt)
	assert.Equal(t, "lang=Russian", calls[0].SystemInstruction)
}

func TestEngine_Failures(t *testing.T) {
	tests := []struct {
		name        string
		provider    *mock.MockProvider
		timeout     time.Duration
		wantTimeout bool
	}{
		{
			name:     "provider error",
			provider: &mock.MockProvider{Err: errors.New("quota exceeded")},
			timeout:  time.Second,
		},
		{
			name:        "timeout",
			provider:    &mock.MockProvider{Response: "late", Delay: time.Second},
			timeout:     20 * time.Millisecond,
			wantTimeout: true,
		},
		{
			name:     "empty response",
			provider: mock.NewMockProvider("   "),
			timeout:  time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.provider, defaultTemplate(), tt.timeout)
			require.NoError(t, err)

			got, err := engine.Compare(context.Background(), "a", "b")
			assert.Empty(t, got)

			var cmpErr *ComparisonError
			require.ErrorAs(t, err, &cmpErr)
			assert.Equal(t, tt.wantTimeout, cmpErr.Timeout)
			assert.Len(t, tt.provider.Calls(), 1, "no retries")
		})
	}
}

func TestNewEngine_InvalidTemplate(t *testing.T) {
	_, err := NewEngine(mock.NewMockProvider(""), PromptTemplate{Report: "{{.First"}, time.Second)
	assert.Error(t, err)

	_, err = NewEngine(nil, defaultTemplate(), time.Second)
	assert.Error(t, err)
}
