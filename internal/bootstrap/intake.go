package bootstrap

import (
	"fmt"
	"time"

	"lab-compare-be/internal/config"
	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/internal/repository/memory"
	"lab-compare-be/internal/service"
	"lab-compare-be/pkg/comparison"
	"lab-compare-be/pkg/extractor"
	"lab-compare-be/pkg/llm"
	"lab-compare-be/pkg/llm/factory"
	"lab-compare-be/pkg/storage"
	"lab-compare-be/pkg/store"
)

// Intake is the transport-independent part of the service: the session
// state machine and everything it drives.
type Intake struct {
	Sessions   *memory.SessionRepository
	Storage    *storage.LocalStorage
	Service    service.IIntakeService
	Dispatcher service.IDispatcherService
}

// NewIntake wires the pipeline. publisher may be nil.
func NewIntake(cfg *config.Config, log logger.ILogger, publisher service.IPublisherService) (*Intake, error) {
	docStorage, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.MaxDocumentBytes)
	if err != nil {
		return nil, err
	}

	provider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
		cfg.Intake.ComparisonTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	log.Info("Bootstrap", "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	engine, err := comparison.NewEngine(provider, comparison.PromptTemplate{
		System:   cfg.Intake.SystemInstruction,
		Report:   cfg.Intake.PromptTemplate,
		Language: cfg.Intake.Language,
	}, cfg.Intake.ComparisonTimeout,
		llm.WithTemperature(cfg.Ai.Temperature),
		llm.WithMaxTokens(cfg.Ai.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("init comparison engine: %w", err)
	}

	// The session store reports expiries to the service that owns it.
	var intakeService service.IIntakeService
	sessions := memory.NewSessionRepository(cfg.Intake.SessionTTL, func(userID string, docs []store.DocumentRef) {
		intakeService.ExpireDocuments(userID, docs)
	})

	intakeService = service.NewIntakeService(
		sessions,
		docStorage,
		extractor.NewPDFExtractor(),
		engine,
		publisher,
		service.DefaultIntakeMessages(),
		log,
	)

	return &Intake{
		Sessions:   sessions,
		Storage:    docStorage,
		Service:    intakeService,
		Dispatcher: service.NewDispatcherService(intakeService, log),
	}, nil
}

// OrphanAge is how old a document must be before the sweeper treats it as
// orphaned: older than any session could keep it alive.
func OrphanAge(cfg *config.Config) time.Duration {
	return 2*cfg.Intake.SessionTTL + cfg.Intake.ComparisonTimeout
}

// Close waits for in-flight events and stops the session sweep.
func (i *Intake) Close() {
	i.Dispatcher.Wait()
	i.Sessions.Close()
}
