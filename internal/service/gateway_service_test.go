package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/pkg/events"
	pktNats "lab-compare-be/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSubscriber struct {
	subject string
	handler pktNats.EventHandler
}

func (s *captureSubscriber) Subscribe(subject, _ string, handler pktNats.EventHandler) error {
	s.subject = subject
	s.handler = handler
	return nil
}

func inbound(data map[string]interface{}) events.Event {
	return events.BaseEvent{Type: events.TypeIntakeInbound, Data: data, OccurredAt: time.Now()}
}

func TestGatewayService_RoundTrip(t *testing.T) {
	f := newIntakeFixture(t)
	dispatcher := NewDispatcherService(f.svc, logger.NewNopLogger())
	sub := &captureSubscriber{}
	relay := &fakeRelay{}

	gw := NewGatewayService(sub, relay, dispatcher, logger.NewNopLogger())
	require.NoError(t, gw.Start())
	assert.Equal(t, "events.INTAKE_INBOUND", sub.subject)

	frames := []map[string]interface{}{
		{"type": "start", "user_id": "tg-1"},
		{"type": "document", "user_id": "tg-1", "file_name": "a.pdf", "content_base64": base64.StdEncoding.EncodeToString([]byte("A"))},
		{"type": "document", "user_id": "tg-1", "content_base64": base64.StdEncoding.EncodeToString([]byte("B"))},
	}
	for _, frame := range frames {
		require.NoError(t, sub.handler(context.Background(), inbound(frame)))
	}
	dispatcher.Wait()

	replies := relay.Events()
	require.Len(t, replies, 4)
	for _, r := range replies {
		assert.Equal(t, events.TypeIntakeReply, r.EventType())
		assert.Equal(t, "tg-1", r.Payload()["user_id"])
	}
	assert.Equal(t, f.msgs.ResultPrefix+"REPORT", replies[3].Payload()["text"])
}

func TestGatewayService_DropsBadFrames(t *testing.T) {
	f := newIntakeFixture(t)
	dispatcher := NewDispatcherService(f.svc, logger.NewNopLogger())
	sub := &captureSubscriber{}
	relay := &fakeRelay{}
	require.NoError(t, NewGatewayService(sub, relay, dispatcher, logger.NewNopLogger()).Start())

	bad := []map[string]interface{}{
		{"type": "start"},
		{"type": "dance", "user_id": "u"},
		{"type": "document", "user_id": "u", "content_base64": "%%%"},
	}
	for _, frame := range bad {
		assert.NoError(t, sub.handler(context.Background(), inbound(frame)))
	}
	assert.Empty(t, relay.Events())
}
