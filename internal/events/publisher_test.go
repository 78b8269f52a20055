package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestKafkaPublisher_PublishRouteComputed(t *testing.T) {
	writer := &fakeWriter{}
	pub := newKafkaPublisher(writer, DefaultTopic, testLogger())

	err := pub.PublishRouteComputed(context.Background(), RouteComputedEvent{
		SessionID:      "session-1",
		Generation:     3,
		Mode:           "DRIVING",
		DistanceMeters: 5000,
		SegmentCount:   5,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "session-1", string(msg.Key))

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	assert.Equal(t, TypeRouteComputed, envelope.Type)
	assert.NotEmpty(t, envelope.ID)

	var evt RouteComputedEvent
	require.NoError(t, envelope.ParseData(&evt))
	assert.Equal(t, uint64(3), evt.Generation)
	assert.Equal(t, 5, evt.SegmentCount)
	assert.InDelta(t, 5000, evt.DistanceMeters, 1e-9)

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	pub := newKafkaPublisher(writer, DefaultTopic, testLogger())

	err := pub.PublishRouteComputed(context.Background(), RouteComputedEvent{SessionID: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNopPublisher(t *testing.T) {
	var pub Publisher = NopPublisher{}
	assert.NoError(t, pub.PublishRouteComputed(context.Background(), RouteComputedEvent{}))
	assert.NoError(t, pub.Close())
}
