package factory

import (
	"fmt"
	"time"

	"lab-compare-be/pkg/llm"
	"lab-compare-be/pkg/llm/gemini"
	"lab-compare-be/pkg/llm/huggingface"
	"lab-compare-be/pkg/llm/mock"
	"lab-compare-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string, timeout time.Duration) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	case "huggingface", "openai", "groq":
		// All three speak the OpenAI chat completions dialect.
		if baseURL == "" {
			baseURL = defaultCompatURL(providerType)
		}
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName, timeout), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(apiKey, baseURL, modelName, timeout), nil
	case "mock":
		// Offline runs: every comparison returns a canned report.
		return mock.NewMockProvider("Report 1:\n(mock)\n\nReport 2:\n(mock)\n\nSummary: no model configured."), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

func defaultCompatURL(providerType string) string {
	switch providerType {
	case "openai":
		return "https://api.openai.com/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	default:
		return "" // provider falls back to the HF router
	}
}
