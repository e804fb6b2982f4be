package memory

import (
	"sync"
	"time"

	"lab-compare-be/internal/repository/contract"
	"lab-compare-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// ExpireFunc receives the documents of a session that timed out while still
// collecting.
type ExpireFunc func(userID string, docs []store.DocumentRef)

type SessionRepository struct {
	cache *cache.Cache
	// Guards every read-modify-write and every eviction. go-cache runs
	// OnEvicted synchronously, so expired sessions are only collected under
	// mu and handed to onExpire after it is released.
	mu       sync.Mutex
	now      func() time.Time
	onExpire ExpireFunc
	expired  []*store.Session

	stop      chan struct{}
	closeOnce sync.Once
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a repository whose sessions expire after ttl
// of inactivity. Expired sessions are swept every ttl/6 until Close.
func NewSessionRepository(ttl time.Duration, onExpire ExpireFunc) *SessionRepository {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return newSessionRepository(ttl, ttl/6, onExpire)
}

// newSessionRepository with a non-positive interval never sweeps on its own.
func newSessionRepository(ttl, interval time.Duration, onExpire ExpireFunc) *SessionRepository {
	r := &SessionRepository{
		// go-cache's own janitor would evict outside mu.
		cache:    cache.New(ttl, 0),
		now:      time.Now,
		onExpire: onExpire,
		stop:     make(chan struct{}),
	}
	// Also fires on Delete; Clear empties the session first so only real
	// expiries carry documents.
	r.cache.OnEvicted(func(_ string, v interface{}) {
		session, ok := v.(*store.Session)
		if !ok || len(session.Documents) == 0 {
			return
		}
		r.expired = append(r.expired, session)
	})
	if interval > 0 {
		go r.runJanitor(interval)
	}
	return r
}

func (r *SessionRepository) runJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.EvictExpired()
		case <-r.stop:
			return
		}
	}
}

// EvictExpired drops expired sessions and hands their documents to the
// expiry hook.
func (r *SessionRepository) EvictExpired() {
	r.mu.Lock()
	r.cache.DeleteExpired()
	r.mu.Unlock()
	r.flushExpired()
}

// flushExpired runs the hook for collected expiries. Callers must not hold mu.
func (r *SessionRepository) flushExpired() {
	r.mu.Lock()
	expired := r.expired
	r.expired = nil
	r.mu.Unlock()

	if r.onExpire == nil {
		return
	}
	for _, session := range expired {
		r.onExpire(session.UserID, session.Documents)
	}
}

// Close stops the background sweep.
func (r *SessionRepository) Close() {
	r.closeOnce.Do(func() { close(r.stop) })
}

func (r *SessionRepository) Get(userID string) (store.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, found := r.load(userID)
	if !found {
		return store.IdleSession(userID), false
	}
	return snapshot(session), true
}

func (r *SessionRepository) Reset(userID string) []store.DocumentRef {
	defer r.flushExpired()
	r.mu.Lock()
	defer r.mu.Unlock()

	var discarded []store.DocumentRef
	if prev, found := r.load(userID); found {
		discarded = prev.Documents
		prev.Documents = nil
	} else {
		// Set would drop an expired session the sweep has not reached yet.
		r.cache.Delete(userID)
	}

	r.cache.Set(userID, &store.Session{
		UserID:    userID,
		State:     store.StateCollectingDocuments,
		Documents: make([]store.DocumentRef, 0, store.MaxDocuments),
		UpdatedAt: r.now(),
	}, cache.DefaultExpiration)

	return discarded
}

func (r *SessionRepository) AppendDocument(userID string, ref store.DocumentRef) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, found := r.load(userID)
	if !found || session.State != store.StateCollectingDocuments {
		return 0, &store.InvalidStateError{UserID: userID, State: store.StateIdle, Op: "append document"}
	}
	if len(session.Documents) >= store.MaxDocuments {
		return len(session.Documents), &store.InvalidStateError{UserID: userID, State: session.State, Op: "append document to full session"}
	}

	session.Documents = append(session.Documents, ref)
	session.UpdatedAt = r.now()
	// Set again to refresh the expiration.
	r.cache.Set(userID, session, cache.DefaultExpiration)
	return len(session.Documents), nil
}

func (r *SessionRepository) Clear(userID string) []store.DocumentRef {
	defer r.flushExpired()
	r.mu.Lock()
	defer r.mu.Unlock()

	session, found := r.load(userID)
	if !found {
		r.cache.Delete(userID)
		return nil
	}
	docs := session.Documents
	session.Documents = nil
	r.cache.Delete(userID)
	return docs
}

// ItemCount reports live sessions, expired-but-unswept ones included.
func (r *SessionRepository) ItemCount() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) load(userID string) (*store.Session, bool) {
	if x, found := r.cache.Get(userID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func snapshot(s *store.Session) store.Session {
	out := *s
	out.Documents = append([]store.DocumentRef(nil), s.Documents...)
	return out
}
