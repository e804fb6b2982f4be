package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedIntake records handled events; events whose text is "block" wait
// on release.
type scriptedIntake struct {
	mu      sync.Mutex
	handled map[string][]string
	active  map[string]int
	overlap bool
	release chan struct{}
}

func newScriptedIntake() *scriptedIntake {
	return &scriptedIntake{
		handled: make(map[string][]string),
		active:  make(map[string]int),
		release: make(chan struct{}),
	}
}

func (s *scriptedIntake) Handle(_ context.Context, event dto.IntakeEvent, _ Replier) error {
	s.mu.Lock()
	s.active[event.UserID]++
	if s.active[event.UserID] > 1 {
		s.overlap = true
	}
	s.mu.Unlock()

	if event.Text == "block" {
		<-s.release
	}
	if event.Text == "panic" {
		panic("boom")
	}

	s.mu.Lock()
	s.handled[event.UserID] = append(s.handled[event.UserID], event.Text)
	s.active[event.UserID]--
	s.mu.Unlock()
	return nil
}

func (s *scriptedIntake) Session(userID string) store.Session { return store.IdleSession(userID) }

func (s *scriptedIntake) ExpireDocuments(string, []store.DocumentRef) {}

func (s *scriptedIntake) Handled(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.handled[userID]...)
}

func event(userID, text string) dto.IntakeEvent {
	return dto.IntakeEvent{Kind: dto.IntakeEventText, UserID: userID, Text: text}
}

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	intake := newScriptedIntake()
	d := NewDispatcherService(intake, logger.NewNopLogger())

	var want []string
	for i := 0; i < 20; i++ {
		msg := fmt.Sprintf("m%d", i)
		want = append(want, msg)
		d.Submit(context.Background(), event("u1", msg), &recordingReplier{})
	}
	d.Wait()

	assert.Equal(t, want, intake.Handled("u1"))
	assert.False(t, intake.overlap, "events of one user must never overlap")
}

func TestDispatcher_UsersRunInParallel(t *testing.T) {
	intake := newScriptedIntake()
	d := NewDispatcherService(intake, logger.NewNopLogger())

	blocked := d.Submit(context.Background(), event("slow", "block"), &recordingReplier{})
	queued := d.Submit(context.Background(), event("slow", "after"), &recordingReplier{})

	// Another user is not held up by the blocked one.
	select {
	case err := <-d.Submit(context.Background(), event("fast", "hello"), &recordingReplier{}):
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("independent user was blocked")
	}
	assert.Empty(t, intake.Handled("slow"))

	close(intake.release)
	require.NoError(t, <-blocked)
	require.NoError(t, <-queued)
	assert.Equal(t, []string{"block", "after"}, intake.Handled("slow"))
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	intake := newScriptedIntake()
	d := NewDispatcherService(intake, logger.NewNopLogger())

	err := <-d.Submit(context.Background(), event("u1", "panic"), &recordingReplier{})
	assert.Error(t, err)

	// The user's queue keeps working afterwards.
	require.NoError(t, <-d.Submit(context.Background(), event("u1", "next"), &recordingReplier{}))
	assert.Equal(t, []string{"next"}, intake.Handled("u1"))
}
