package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
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

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "clover.events", ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))

	err := p.Publish(context.Background(), Message{
		Key:       "contact-1",
		EventType: "entity.merged",
		OrgID:     "org-1",
		Payload:   map[string]string{"keep_id": "contact-1"},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "contact-1", string(msg.Key))
	assert.Empty(t, msg.Topic)

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "contact-1", body["keep_id"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "entity.merged", headers["event_type"])
	assert.Equal(t, "org-1", headers["org_id"])
	assert.Equal(t, SchemaVersion, headers["schema_version"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("no brokers")}
	p := NewProducerWithWriter(w, "clover.events", ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))

	err := p.Publish(context.Background(), Message{Key: "k", EventType: "entity.merged", Payload: struct{}{}})
	require.Error(t, err)
}
