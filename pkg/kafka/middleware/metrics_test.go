package kafka_middleware

import (
	"context"
	"errors"
	"medbook/pkg/kafka"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
)

type stubWriter struct {
	err error
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	return w.err
}

func (w *stubWriter) Close() error { return nil }

func message(t *testing.T) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey("slot-1").
		WithValue(map[string]string{"slot_id": "slot-1"}).
		WithEventType("appointment.booked").
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return msg
}

func TestMetricsProducerMiddleware(t *testing.T) {
	writer := &stubWriter{}
	stats := &PublishStats{}
	p := kafka.NewProducerWithWriters(writer, nil, "medbook.events", "")
	p.Use(MetricsProducerMiddleware(stats))

	for i := 0; i < 3; i++ {
		if err := p.Publish(context.Background(), message(t)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	writer.err = errors.New("broker down")
	if err := p.Publish(context.Background(), message(t)); err == nil {
		t.Fatal("expected publish to fail")
	}

	snap := stats.Snapshot()
	if snap.Published != 3 || snap.Failed != 1 {
		t.Errorf("snapshot = %+v, want 3 published and 1 failed", snap)
	}
	if snap.AvgDuration < 0 {
		t.Errorf("negative average duration %v", snap.AvgDuration)
	}
}

func TestPublishStats_Empty(t *testing.T) {
	var stats PublishStats
	if snap := stats.Snapshot(); snap != (PublishSnapshot{}) {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}
