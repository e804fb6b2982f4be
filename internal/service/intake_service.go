package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lab-compare-be/internal/constant"
	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/internal/repository/contract"
	"lab-compare-be/pkg/comparison"
	"lab-compare-be/pkg/extractor"
	"lab-compare-be/pkg/storage"
	"lab-compare-be/pkg/store"

	"github.com/google/uuid"
)

const intakeModule = "IntakeService"

// Replier delivers plain text replies to a user over some chat transport.
type Replier interface {
	SendText(ctx context.Context, userID, text string) error
}

// DocumentStorage holds materialized documents until they are released.
type DocumentStorage interface {
	Materialize(ctx context.Context, userID string, slot int, r io.Reader) (storage.Object, error)
	Release(locator string) (bool, error)
}

// IntakeMessages are the user-facing replies of the intake flow.
type IntakeMessages struct {
	Start            string
	NotADocument     string
	FirstReceived    string
	Comparing        string
	ResultPrefix     string
	NotStarted       string
	Cancelled        string
	ExtractionFailed string
	ComparisonFailed string
	DocumentRejected string
	InternalError    string
}

func DefaultIntakeMessages() IntakeMessages {
	return IntakeMessages{
		Start:            constant.IntakeMsgStart,
		NotADocument:     constant.IntakeMsgNotADocument,
		FirstReceived:    constant.IntakeMsgFirstReceived,
		Comparing:        constant.IntakeMsgComparing,
		ResultPrefix:     constant.IntakeMsgResultPrefix,
		NotStarted:       constant.IntakeMsgNotStarted,
		Cancelled:        constant.IntakeMsgCancelled,
		ExtractionFailed: constant.IntakeMsgExtractionFailed,
		ComparisonFailed: constant.IntakeMsgComparisonFailed,
		DocumentRejected: constant.IntakeMsgDocumentRejected,
		InternalError:    constant.IntakeMsgInternalError,
	}
}

type IIntakeService interface {
	// Handle advances the user's session for one event. Domain failures are
	// turned into replies; the returned error only reports replies that could
	// not be delivered.
	Handle(ctx context.Context, event dto.IntakeEvent, replier Replier) error
	Session(userID string) store.Session
	// ExpireDocuments releases documents of a session that timed out.
	ExpireDocuments(userID string, docs []store.DocumentRef)
}

type intakeService struct {
	sessions  contract.SessionRepository
	storage   DocumentStorage
	extractor extractor.Extractor
	comparer  comparison.Comparer
	publisher IPublisherService
	messages  IntakeMessages
	logger    logger.ILogger
	now       func() time.Time
}

func NewIntakeService(
	sessions contract.SessionRepository,
	storage DocumentStorage,
	extractor extractor.Extractor,
	comparer comparison.Comparer,
	publisher IPublisherService,
	messages IntakeMessages,
	log logger.ILogger,
) IIntakeService {
	return &intakeService{
		sessions:  sessions,
		storage:   storage,
		extractor: extractor,
		comparer:  comparer,
		publisher: publisher,
		messages:  messages,
		logger:    log,
		now:       time.Now,
	}
}

func (s *intakeService) Handle(ctx context.Context, event dto.IntakeEvent, replier Replier) error {
	switch event.Kind {
	case dto.IntakeEventStart:
		return s.handleStart(ctx, event.UserID, replier)
	case dto.IntakeEventCancel:
		return s.handleCancel(ctx, event.UserID, replier)
	case dto.IntakeEventDocument:
		if event.Document != nil {
			return s.handleDocument(ctx, event, replier)
		}
	}
	return s.handleText(ctx, event.UserID, replier)
}

func (s *intakeService) Session(userID string) store.Session {
	session, _ := s.sessions.Get(userID)
	return session
}

func (s *intakeService) ExpireDocuments(userID string, docs []store.DocumentRef) {
	s.releaseAll(userID, docs)
	s.publish(context.Background(), dto.PublishIntakeOutcomeMessage{
		Type:      dto.IntakeOutcomeSessionExpired,
		UserID:    userID,
		Documents: len(docs),
	})
}

func (s *intakeService) handleStart(ctx context.Context, userID string, replier Replier) error {
	discarded := s.sessions.Reset(userID)
	s.releaseAll(userID, discarded)

	s.logger.Info(intakeModule, "Session started", map[string]interface{}{
		"user_id":   userID,
		"discarded": len(discarded),
	})
	s.publish(ctx, dto.PublishIntakeOutcomeMessage{Type: dto.IntakeOutcomeSessionStarted, UserID: userID})

	return replier.SendText(ctx, userID, s.messages.Start)
}

func (s *intakeService) handleCancel(ctx context.Context, userID string, replier Replier) error {
	session, found := s.sessions.Get(userID)
	if !found || session.State != store.StateCollectingDocuments {
		return replier.SendText(ctx, userID, s.messages.NotStarted)
	}

	s.finish(userID)
	s.logger.Info(intakeModule, "Session cancelled", map[string]interface{}{"user_id": userID})
	return replier.SendText(ctx, userID, s.messages.Cancelled)
}

func (s *intakeService) handleText(ctx context.Context, userID string, replier Replier) error {
	session, found := s.sessions.Get(userID)
	if !found || session.State != store.StateCollectingDocuments {
		return replier.SendText(ctx, userID, s.messages.NotStarted)
	}
	// A non-document event never consumes a slot.
	return replier.SendText(ctx, userID, s.messages.NotADocument)
}

func (s *intakeService) handleDocument(ctx context.Context, event dto.IntakeEvent, replier Replier) error {
	userID := event.UserID
	session, _ := s.sessions.Get(userID)

	ref, err := s.materialize(ctx, userID, session.Count()+1, event.Document)
	if err != nil {
		s.logger.Warn(intakeModule, "Document rejected", map[string]interface{}{
			"user_id": userID,
			"file":    event.Document.FileName(),
			"error":   err.Error(),
		})
		return replier.SendText(ctx, userID, s.messages.DocumentRejected)
	}

	count, err := s.sessions.AppendDocument(userID, ref)
	if err != nil {
		s.release(userID, ref)

		var stateErr *store.InvalidStateError
		if errors.As(err, &stateErr) {
			s.logger.Info(intakeModule, "Document outside of a collecting session", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			return replier.SendText(ctx, userID, s.messages.NotStarted)
		}
		s.logger.Error(intakeModule, "Failed to store document", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return replier.SendText(ctx, userID, s.messages.InternalError)
	}

	s.logger.Info(intakeModule, "Document stored", map[string]interface{}{
		"user_id":  userID,
		"document": ref.ID,
		"size":     ref.Size,
		"count":    count,
	})
	s.publish(ctx, dto.PublishIntakeOutcomeMessage{Type: dto.IntakeOutcomeDocumentReceived, UserID: userID, Documents: count})

	if count < store.MaxDocuments {
		return replier.SendText(ctx, userID, s.messages.FirstReceived)
	}
	return s.runComparison(ctx, userID, replier)
}

// runComparison processes a full session. On every path the session ends
// Idle and each document's storage is released exactly once.
func (s *intakeService) runComparison(ctx context.Context, userID string, replier Replier) error {
	if err := replier.SendText(ctx, userID, s.messages.Comparing); err != nil {
		s.logger.Warn(intakeModule, "Failed to send progress notice", map[string]interface{}{"user_id": userID, "error": err.Error()})
	}

	session, _ := s.sessions.Get(userID)
	started := s.now()

	report, err := s.compareDocuments(ctx, session.Documents)
	elapsed := s.now().Sub(started)

	if err != nil {
		s.finish(userID)
		s.logger.Error(intakeModule, "Comparison pipeline failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
			"reason":  failureReason(err),
		})
		s.publish(ctx, dto.PublishIntakeOutcomeMessage{
			Type:       dto.IntakeOutcomeComparisonFailed,
			UserID:     userID,
			Documents:  len(session.Documents),
			Reason:     failureReason(err),
			DurationMs: elapsed.Milliseconds(),
		})
		return replier.SendText(ctx, userID, s.failureMessage(err))
	}

	sendErr := replier.SendText(ctx, userID, s.messages.ResultPrefix+report)
	s.finish(userID)

	s.logger.Info(intakeModule, "Comparison delivered", map[string]interface{}{
		"user_id":     userID,
		"duration_ms": elapsed.Milliseconds(),
		"report_len":  len(report),
	})
	s.publish(ctx, dto.PublishIntakeOutcomeMessage{
		Type:       dto.IntakeOutcomeComparisonComplete,
		UserID:     userID,
		Documents:  len(session.Documents),
		DurationMs: elapsed.Milliseconds(),
	})
	return sendErr
}

func (s *intakeService) compareDocuments(ctx context.Context, docs []store.DocumentRef) (string, error) {
	if len(docs) != store.MaxDocuments {
		return "", fmt.Errorf("expected %d documents, session holds %d", store.MaxDocuments, len(docs))
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		text, err := s.extractor.Extract(ctx, doc.Locator)
		if err != nil {
			return "", err
		}
		texts[i] = text
	}

	return s.comparer.Compare(ctx, texts[0], texts[1])
}

func (s *intakeService) materialize(ctx context.Context, userID string, slot int, doc dto.DocumentHandle) (store.DocumentRef, error) {
	rc, err := doc.Open()
	if err != nil {
		return store.DocumentRef{}, fmt.Errorf("open attachment: %w", err)
	}
	defer rc.Close()

	obj, err := s.storage.Materialize(ctx, userID, slot, rc)
	if err != nil {
		return store.DocumentRef{}, err
	}

	return store.DocumentRef{
		ID:         uuid.NewString(),
		FileName:   doc.FileName(),
		Size:       obj.Size,
		Locator:    obj.Locator,
		ReceivedAt: s.now(),
	}, nil
}

// finish clears the session and releases whatever it still held.
func (s *intakeService) finish(userID string) {
	s.releaseAll(userID, s.sessions.Clear(userID))
}

func (s *intakeService) releaseAll(userID string, docs []store.DocumentRef) {
	for _, doc := range docs {
		s.release(userID, doc)
	}
}

func (s *intakeService) release(userID string, doc store.DocumentRef) {
	if _, err := s.storage.Release(doc.Locator); err != nil {
		s.logger.Error(intakeModule, "Failed to release document storage", map[string]interface{}{
			"user_id":  userID,
			"document": doc.ID,
			"error":    err.Error(),
		})
	}
}

func (s *intakeService) publish(ctx context.Context, outcome dto.PublishIntakeOutcomeMessage) {
	if s.publisher == nil {
		return
	}
	outcome.OccurredAt = s.now()
	if err := s.publisher.PublishOutcome(ctx, outcome); err != nil {
		s.logger.Warn(intakeModule, "Failed to publish outcome", map[string]interface{}{
			"type":  outcome.Type,
			"error": err.Error(),
		})
	}
}

func (s *intakeService) failureMessage(err error) string {
	var extErr *extractor.ExtractionError
	var cmpErr *comparison.ComparisonError
	var stateErr *store.InvalidStateError

	switch {
	case errors.As(err, &extErr):
		return s.messages.ExtractionFailed
	case errors.As(err, &cmpErr):
		return s.messages.ComparisonFailed
	case errors.As(err, &stateErr):
		return s.messages.NotStarted
	default:
		return s.messages.InternalError
	}
}

func failureReason(err error) string {
	var extErr *extractor.ExtractionError
	var cmpErr *comparison.ComparisonError

	switch {
	case errors.As(err, &extErr):
		return "extraction"
	case errors.As(err, &cmpErr) && cmpErr.Timeout:
		return "comparison_timeout"
	case errors.As(err, &cmpErr):
		return "comparison"
	default:
		return "internal"
	}
}
