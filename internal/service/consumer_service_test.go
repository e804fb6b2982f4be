package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lab-compare-be/internal/dto"
	"lab-compare-be/pkg/events"
	"lab-compare-be/pkg/metrics"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelay struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *fakeRelay) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *fakeRelay) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func TestConsumerService_RelaysOutcomes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	reg := prometheus.NewRegistry()
	relay := &fakeRelay{err: errors.New("nats down")}
	consumer := NewConsumerService(pubSub, "INTAKE_OUTCOMES", metrics.NewIntakeMetrics(reg), relay)
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("INTAKE_OUTCOMES", pubSub)
	require.NoError(t, publisher.Publish(ctx, []byte("not json")))
	require.NoError(t, publisher.PublishOutcome(ctx, dto.PublishIntakeOutcomeMessage{
		Type:       dto.IntakeOutcomeComparisonFailed,
		UserID:     "u1",
		Documents:  2,
		Reason:     "extraction",
		DurationMs: 1500,
		OccurredAt: time.Now(),
	}))

	require.Eventually(t, func() bool { return len(relay.Events()) == 1 }, time.Second, 5*time.Millisecond)

	got := relay.Events()[0]
	assert.Equal(t, dto.IntakeOutcomeComparisonFailed, got.EventType())
	assert.Equal(t, "u1", got.Payload()["user_id"])
	assert.Equal(t, "extraction", got.Payload()["reason"])
	assert.NotContains(t, got.Payload(), "text")

	count, err := testutil.GatherAndCount(reg, "lab_compare_comparisons_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sum, observed := latencyOf(t, reg, "extraction")
	assert.Equal(t, uint64(1), observed)
	assert.InDelta(t, 1.5, sum, 1e-9)
}

// latencyOf returns the sum and count of comparison durations for result.
func latencyOf(t *testing.T, reg prometheus.Gatherer, result string) (float64, uint64) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "lab_compare_comparison_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					h := metric.GetHistogram()
					return h.GetSampleSum(), h.GetSampleCount()
				}
			}
		}
	}
	return 0, 0
}
