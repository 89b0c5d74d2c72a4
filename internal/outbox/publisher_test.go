package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/pkg/events"
)

func TestPublisherFramesSignupEvent(t *testing.T) {
	writer := &stubWriter{}
	registry := &stubRegistry{id: 7}
	publisher := NewPublisher(writer, registry, PublisherConfig{Topic: "activity_signups"})

	occurred := time.Date(2025, time.September, 5, 15, 30, 0, 0, time.UTC)
	signup := domain.Signup{
		ActivityName:     "Chess Club",
		Email:            "new@mergington.edu",
		ParticipantCount: 3,
		MaxParticipants:  12,
		OccurredAt:       occurred,
	}

	require.NoError(t, publisher.PublishSignup(context.Background(), signup))
	require.NoError(t, publisher.PublishSignup(context.Background(), signup))

	require.Equal(t, 1, registry.calls, "schema id should be cached")
	require.Equal(t, "activity_signups-value", registry.subject)
	require.Len(t, writer.messages, 2)
	require.Equal(t, "activity_signups", writer.topic)

	msg := writer.messages[0]
	require.Equal(t, []byte("Chess Club"), msg.Key)
	require.Equal(t, byte(0), msg.Value[0])
	require.Equal(t, uint32(7), binary.BigEndian.Uint32(msg.Value[1:5]))
	require.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte(events.SignupRecordedType)})

	var event events.SignupRecorded
	require.NoError(t, json.Unmarshal(msg.Value[5:], &event))
	require.NotEmpty(t, event.EventID)
	require.Equal(t, "Chess Club", event.ActivityName)
	require.Equal(t, "new@mergington.edu", event.Email)
	require.Equal(t, 3, event.ParticipantCount)
	require.Equal(t, 12, event.MaxParticipants)
	require.True(t, occurred.Equal(event.OccurredAt))
}

func TestPublisherWithoutRegistryUsesSchemaZero(t *testing.T) {
	writer := &stubWriter{}
	publisher := NewPublisher(writer, nil, PublisherConfig{Topic: "signups", SchemaSubject: "custom"})

	require.NoError(t, publisher.PublishSignup(context.Background(), domain.Signup{ActivityName: "Art Studio", OccurredAt: time.Now()}))
	require.Len(t, writer.messages, 1)
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(writer.messages[0].Value[1:5]))
	require.Contains(t, writer.messages[0].Headers, kafka.Header{Key: "schema_subject", Value: []byte("custom")})
}

func TestPublisherPropagatesFailures(t *testing.T) {
	writer := &stubWriter{err: errors.New("leader not available")}
	publisher := NewPublisher(writer, nil, PublisherConfig{Topic: "signups"})

	err := publisher.PublishSignup(context.Background(), domain.Signup{ActivityName: "Gym Class"})
	require.ErrorIs(t, err, writer.err)

	registry := &stubRegistry{err: errors.New("registry down")}
	publisher = NewPublisher(&stubWriter{}, registry, PublisherConfig{Topic: "signups"})
	err = publisher.PublishSignup(context.Background(), domain.Signup{ActivityName: "Gym Class"})
	require.ErrorIs(t, err, registry.err)

	registry.err = nil
	registry.id = 3
	require.NoError(t, publisher.PublishSignup(context.Background(), domain.Signup{ActivityName: "Gym Class"}))
	require.Equal(t, 2, registry.calls)
}

func TestSchemaRegistryClientReturnsExistingID(t *testing.T) {
	var registered atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/activity_signups-value/versions/latest":
			_, _ = w.Write([]byte(`{"id": 11, "version": 2}`))
		case r.Method == http.MethodPost:
			registered.Store(true)
			_, _ = w.Write([]byte(`{"id": 99}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL+"/", time.Second)
	id, err := client.EnsureSchema(context.Background(), "activity_signups-value", signupRecordedSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
	require.False(t, registered.Load())
}

func TestSchemaRegistryClientRegistersMissingSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code": 40401}`))
			return
		}
		assert.Equal(t, "/subjects/activity_signups-value/versions", r.URL.Path)
		assert.Equal(t, "application/vnd.schemaregistry.v1+json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "JSON", body["schemaType"])
		assert.JSONEq(t, signupRecordedSchema, body["schema"])
		_, _ = w.Write([]byte(`{"id": 21}`))
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL, time.Second)
	id, err := client.EnsureSchema(context.Background(), "activity_signups-value", signupRecordedSchema)
	require.NoError(t, err)
	require.Equal(t, 21, id)
}

func TestSchemaRegistryClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL, time.Second)
	_, err := client.EnsureSchema(context.Background(), "subject", signupRecordedSchema)
	require.ErrorContains(t, err, "status 500")
}

type stubWriter struct {
	topic    string
	messages []kafka.Message
	err      error
}

func (w *stubWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.topic = topic
	w.messages = append(w.messages, msgs...)
	return nil
}

type stubRegistry struct {
	id      int
	err     error
	calls   int
	subject string
}

func (r *stubRegistry) EnsureSchema(_ context.Context, subject, _ string) (int, error) {
	r.calls++
	r.subject = subject
	if r.err != nil {
		return 0, r.err
	}
	return r.id, nil
}
