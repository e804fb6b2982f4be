package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when a document exceeds the configured size limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Object describes one materialized document.
type Object struct {
	Locator   string
	Size      int64
	CreatedAt time.Time
}

// LocalStorage materializes inbound documents as files under a root
// directory. Every locator is released at most once.
type LocalStorage struct {
	root     string
	maxBytes int64

	mu   sync.Mutex
	live map[string]Object
	now  func() time.Time
}

func NewLocalStorage(root string, maxBytes int64) (*LocalStorage, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "lab-compare")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{
		root:     root,
		maxBytes: maxBytes,
		live:     make(map[string]Object),
		now:      time.Now,
	}, nil
}

// Materialize copies r into a new file owned by the given user and slot.
func (s *LocalStorage) Materialize(ctx context.Context, userID string, slot int, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	name := fmt.Sprintf("user_%s_%d_%s.bin", sanitize(userID), slot, uuid.NewString())
	path := filepath.Join(s.root, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return Object{}, fmt.Errorf("create document file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("write document file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return Object{}, fmt.Errorf("close document file: %w", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = os.Remove(path)
		return Object{}, ErrTooLarge
	}

	obj := Object{Locator: path, Size: n, CreatedAt: s.now()}
	s.mu.Lock()
	s.live[path] = obj
	s.mu.Unlock()
	return obj, nil
}

// Release deletes the file behind locator. Releasing an unknown or already
// released locator is a no-op and reports false.
func (s *LocalStorage) Release(locator string) (bool, error) {
	s.mu.Lock()
	_, ok := s.live[locator]
	delete(s.live, locator)
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := os.Remove(locator); err != nil && !os.IsNotExist(err) {
		return true, fmt.Errorf("remove document file: %w", err)
	}
	return true, nil
}

// Sweep releases objects older than maxAge and returns how many it removed.
// It backs up session expiry for documents whose session vanished.
func (s *LocalStorage) Sweep(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	var stale []string
	for loc, obj := range s.live {
		if obj.CreatedAt.Before(cutoff) {
			stale = append(stale, loc)
		}
	}
	s.mu.Unlock()

	removed := 0
	for _, loc := range stale {
		if ok, _ := s.Release(loc); ok {
			removed++
		}
	}
	return removed
}

// Live returns the number of materialized, unreleased documents.
func (s *LocalStorage) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *LocalStorage) Root() string {
	return s.root
}

func sanitize(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return string(out)
}
