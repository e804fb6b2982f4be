package store

import (
	"fmt"
	"time"
)

// DocumentRef points at an inbound attachment that has been materialized
// into transient storage. Locator is unique per document.
type DocumentRef struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	Locator    string    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
}

// Session represents the active intake state of a single user in memory
type Session struct {
	UserID    string        `json:"user_id"`
	State     string        `json:"state"` // "IDLE" | "COLLECTING_DOCUMENTS"
	Documents []DocumentRef `json:"documents"`
	UpdatedAt time.Time     `json:"updated_at"`
}

const (
	StateIdle                = "IDLE"
	StateCollectingDocuments = "COLLECTING_DOCUMENTS"

	// MaxDocuments is the number of slots a session fills before comparison.
	MaxDocuments = 2
)

// Count returns the number of stored documents.
func (s Session) Count() int {
	return len(s.Documents)
}

// IdleSession is what an absent user looks like.
func IdleSession(userID string) Session {
	return Session{UserID: userID, State: StateIdle}
}

// InvalidStateError is returned when the session protocol is violated,
// e.g. a document arrives before the session was started.
type InvalidStateError struct {
	UserID string
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid session state for %s: user %s is %s", e.Op, e.UserID, e.State)
}
