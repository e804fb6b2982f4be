package dto

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

type IntakeEventKind string

const (
	IntakeEventStart    IntakeEventKind = "start"
	IntakeEventText     IntakeEventKind = "text"
	IntakeEventDocument IntakeEventKind = "document"
	IntakeEventCancel   IntakeEventKind = "cancel"
)

// DocumentHandle is an inbound attachment as delivered by a transport.
type DocumentHandle interface {
	FileName() string
	Open() (io.ReadCloser, error)
}

// IntakeEvent is one inbound chat event for a user.
type IntakeEvent struct {
	Kind       IntakeEventKind
	UserID     string
	Text       string
	Document   DocumentHandle
	ReceivedAt time.Time
}

// --- Document handles ---

type bytesDocument struct {
	name string
	data []byte
}

func NewBytesDocument(name string, data []byte) DocumentHandle {
	return &bytesDocument{name: name, data: data}
}

func (d *bytesDocument) FileName() string { return d.name }

func (d *bytesDocument) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(d.data)), nil
}

type fileDocument struct {
	path string
}

// NewFileDocument wraps a file on local disk. The file is only read, never
// moved or removed.
func NewFileDocument(path string) DocumentHandle {
	return &fileDocument{path: path}
}

func (d *fileDocument) FileName() string { return filepath.Base(d.path) }

func (d *fileDocument) Open() (io.ReadCloser, error) {
	return os.Open(d.path)
}

type multipartDocument struct {
	header *multipart.FileHeader
}

func NewMultipartDocument(header *multipart.FileHeader) DocumentHandle {
	return &multipartDocument{header: header}
}

func (d *multipartDocument) FileName() string { return d.header.Filename }

func (d *multipartDocument) Open() (io.ReadCloser, error) {
	return d.header.Open()
}

// --- Transport payloads ---

// IntakeFrame is the JSON frame exchanged over the websocket and NATS
// gateways.
type IntakeFrame struct {
	Type          string `json:"type" validate:"required,oneof=start text document cancel"`
	UserID        string `json:"user_id,omitempty"`
	Text          string `json:"text,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty" validate:"required_if=Type document"`
}

type SendIntakeMessageRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

type IntakeRepliesResponse struct {
	UserID  string   `json:"user_id"`
	Replies []string `json:"replies"`
}

type IntakeSessionResponse struct {
	UserID    string              `json:"user_id"`
	State     string              `json:"state"`
	Documents []IntakeDocumentDTO `json:"documents"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
}

type IntakeDocumentDTO struct {
	Id         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	ReceivedAt time.Time `json:"received_at"`
}

// --- Outcome events ---

const (
	IntakeOutcomeSessionStarted     = "INTAKE_SESSION_STARTED"
	IntakeOutcomeDocumentReceived   = "INTAKE_DOCUMENT_RECEIVED"
	IntakeOutcomeComparisonComplete = "INTAKE_COMPARISON_COMPLETED"
	IntakeOutcomeComparisonFailed   = "INTAKE_COMPARISON_FAILED"
	IntakeOutcomeSessionExpired     = "INTAKE_SESSION_EXPIRED"
)

// PublishIntakeOutcomeMessage carries no document content or report text.
type PublishIntakeOutcomeMessage struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Documents  int       `json:"documents"`
	Reason     string    `json:"reason,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ToEvent converts a transport frame into an intake event for userID.
func (f IntakeFrame) ToEvent(userID string, now time.Time) (IntakeEvent, error) {
	event := IntakeEvent{
		Kind:       IntakeEventKind(f.Type),
		UserID:     userID,
		Text:       f.Text,
		ReceivedAt: now,
	}

	switch event.Kind {
	case IntakeEventStart, IntakeEventText, IntakeEventCancel:
		return event, nil
	case IntakeEventDocument:
		data, err := base64.StdEncoding.DecodeString(f.ContentBase64)
		if err != nil {
			return IntakeEvent{}, fmt.Errorf("decode document content: %w", err)
		}
		name := f.FileName
		if name == "" {
			name = "document.pdf"
		}
		event.Document = NewBytesDocument(name, data)
		return event, nil
	default:
		return IntakeEvent{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
}
