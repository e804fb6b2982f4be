package comparison

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"lab-compare-be/pkg/llm/ollama"

	"github.com/stretchr/testify/require"
)

// TestEngine_LiveOllama talks to a real Ollama server. Set OLLAMA_TEST_URL
// (e.g. http://localhost:11434) and optionally OLLAMA_TEST_MODEL to run it.
func TestEngine_LiveOllama(t *testing.T) {
	baseURL := os.Getenv("OLLAMA_TEST_URL")
	if baseURL == "" {
		t.Skip("OLLAMA_TEST_URL not set")
	}
	model := os.Getenv("OLLAMA_TEST_MODEL")
	if model == "" {
		model = "gemma:2b"
	}

	res, err := http.Get(baseURL)
	if err != nil {
		t.Skipf("Ollama not reachable at %s: %v", baseURL, err)
	}
	res.Body.Close()

	engine, err := NewEngine(ollama.NewOllamaProvider(baseURL, model, 2*time.Minute), PromptTemplate{
		System:   "You compare lab reports. Answer in {{.Language}}.",
		Report:   "Report 1:\n{{.First}}\n\nReport 2:\n{{.Second}}\n\nList every value of both reports.",
		Language: "English",
	}, 2*time.Minute)
	require.NoError(t, err)

	report, err := engine.Compare(context.Background(),
		"Hemoglobin: 13.1 g/dL (reference interval: 12-16)\n",
		"Hemoglobin: 14.2 g/dL (reference interval: 12-16)\n",
	)
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(report))
	t.Logf("✅ Response: %s", report)
}
