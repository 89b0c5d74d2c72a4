// Package outbox delivers signup events to Kafka.
package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/pkg/events"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// PublisherConfig holds the destination of signup events.
type PublisherConfig struct {
	Topic string
	// SchemaSubject defaults to "<topic>-value".
	SchemaSubject string
}

// Publisher implements domain.Publisher on top of Kafka. Records are framed
// in the Schema Registry wire format; without a registry the schema id is 0.
type Publisher struct {
	producer messageWriter
	registry schemaRegistrar
	topic    string
	subject  string

	mu       sync.Mutex
	schemaID int
	resolved bool
}

// NewPublisher constructs a Publisher. registry may be nil.
func NewPublisher(producer messageWriter, registry schemaRegistrar, cfg PublisherConfig) *Publisher {
	subject := cfg.SchemaSubject
	if subject == "" {
		subject = cfg.Topic + "-value"
	}
	return &Publisher{
		producer: producer,
		registry: registry,
		topic:    cfg.Topic,
		subject:  subject,
	}
}

// PublishSignup implements domain.Publisher.
func (p *Publisher) PublishSignup(ctx context.Context, signup domain.Signup) error {
	start := time.Now()
	defer func() { publishDuration.Observe(time.Since(start).Seconds()) }()

	if err := p.publish(ctx, signup); err != nil {
		publishFailedCounter.WithLabelValues(p.topic).Inc()
		return err
	}
	publishedCounter.WithLabelValues(p.topic).Inc()
	return nil
}

func (p *Publisher) publish(ctx context.Context, signup domain.Signup) error {
	payload, err := json.Marshal(events.SignupRecorded{
		EventID:          uuid.NewString(),
		ActivityName:     signup.ActivityName,
		Email:            signup.Email,
		ParticipantCount: signup.ParticipantCount,
		MaxParticipants:  signup.MaxParticipants,
		OccurredAt:       signup.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal signup event: %w", err)
	}

	schemaID, err := p.resolveSchemaID(ctx)
	if err != nil {
		return err
	}

	record := kafka.Message{
		Key:   []byte(signup.ActivityName),
		Value: encodeWireFormat(schemaID, payload),
		Time:  signup.OccurredAt.UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(events.SignupRecordedType)},
			{Key: "schema_subject", Value: []byte(p.subject)},
		},
	}
	if err := p.producer.WriteMessages(ctx, p.topic, record); err != nil {
		return fmt.Errorf("write signup event to %s: %w", p.topic, err)
	}
	return nil
}

// resolveSchemaID caches the first successful lookup; failures are retried on
// the next publish.
func (p *Publisher) resolveSchemaID(ctx context.Context) (int, error) {
	if p.registry == nil {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return p.schemaID, nil
	}
	id, err := p.registry.EnsureSchema(ctx, p.subject, signupRecordedSchema)
	if err != nil {
		return 0, fmt.Errorf("ensure schema %s: %w", p.subject, err)
	}
	p.schemaID, p.resolved = id, true
	return id, nil
}

// encodeWireFormat applies Confluent framing: magic byte 0, 4-byte big-endian
// schema id, then the JSON payload.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
