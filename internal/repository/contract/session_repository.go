package contract

import (
	"lab-compare-be/pkg/store"
)

// SessionRepository keeps the per-user intake sessions. Implementations must
// be safe for concurrent use by different users and must not perform I/O
// while holding their internal lock.
type SessionRepository interface {
	Get(userID string) (store.Session, bool)
	// Reset starts a fresh collecting session and returns the documents the
	// previous session held, if any, so their storage can be released.
	Reset(userID string) []store.DocumentRef
	AppendDocument(userID string, ref store.DocumentRef) (int, error)
	// Clear drops the session and returns the documents it held.
	Clear(userID string) []store.DocumentRef
}
