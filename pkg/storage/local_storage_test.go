package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T, maxBytes int64) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return s
}

func TestLocalStorage_MaterializeAndRelease(t *testing.T) {
	s := newStorage(t, 0)

	obj, err := s.Materialize(context.Background(), "user/42", 1, strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)

	assert.Equal(t, int64(13), obj.Size)
	assert.True(t, strings.HasPrefix(filepath.Base(obj.Locator), "user_user_42_1_"))
	data, err := os.ReadFile(obj.Locator)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	assert.Equal(t, 1, s.Live())

	released, err := s.Release(obj.Locator)
	require.NoError(t, err)
	assert.True(t, released)
	assert.NoFileExists(t, obj.Locator)

	// A second release is a no-op.
	released, err = s.Release(obj.Locator)
	require.NoError(t, err)
	assert.False(t, released)
	assert.Equal(t, 0, s.Live())
}

func TestLocalStorage_LocatorsAreUnique(t *testing.T) {
	s := newStorage(t, 0)

	a, err := s.Materialize(context.Background(), "u", 1, strings.NewReader("a"))
	require.NoError(t, err)
	b, err := s.Materialize(context.Background(), "u", 1, strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Locator, b.Locator)
}

func TestLocalStorage_TooLarge(t *testing.T) {
	s := newStorage(t, 4)

	_, err := s.Materialize(context.Background(), "u", 1, strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, s.Live())

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.Materialize(context.Background(), "u", 1, strings.NewReader("1234"))
	assert.NoError(t, err)
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	s := newStorage(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Materialize(ctx, "u", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStorage_Sweep(t *testing.T) {
	s := newStorage(t, 0)
	now := time.Now()
	s.now = func() time.Time { return now.Add(-2 * time.Hour) }
	old, err := s.Materialize(context.Background(), "u", 1, strings.NewReader("old"))
	require.NoError(t, err)

	s.now = func() time.Time { return now }
	fresh, err := s.Materialize(context.Background(), "u", 2, strings.NewReader("fresh"))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Sweep(time.Hour))
	assert.NoFileExists(t, old.Locator)
	assert.FileExists(t, fresh.Locator)
	assert.Equal(t, 1, s.Live())
}
