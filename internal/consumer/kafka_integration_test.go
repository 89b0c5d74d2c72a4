//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/outbox"
	"example.com/extracurricular/pkg/events"
)

func TestPublishedSignupReachesHandler(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.Run(ctx, "confluentinc/confluent-local:7.5.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	const topic = "activity_signups"
	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))

	producer := outbox.NewKafkaProducer(brokers)
	defer producer.Close()
	publisher := outbox.NewPublisher(producer, nil, outbox.PublisherConfig{Topic: topic})

	occurred := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, publisher.PublishSignup(ctx, domain.Signup{
		ActivityName:     "Chess Club",
		Email:            "new@mergington.edu",
		ParticipantCount: 3,
		MaxParticipants:  12,
		OccurredAt:       occurred,
	}))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "signup-audit-integration",
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	handler := &channelHandler{received: make(chan Message, 1)}
	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = NewProcessor(reader, handler).Run(consumerCtx) }()

	select {
	case msg := <-handler.received:
		require.Equal(t, events.SignupRecordedType, msg.EventType)
		require.Equal(t, topic+"-value", msg.SchemaSubject)
		require.Equal(t, "Chess Club", msg.Key)
		require.Equal(t, 0, msg.SchemaID)

		var event events.SignupRecorded
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		require.NotEmpty(t, event.EventID)
		require.Equal(t, "new@mergington.edu", event.Email)
		require.Equal(t, 3, event.ParticipantCount)
		require.True(t, occurred.Equal(event.OccurredAt))
	case <-ctx.Done():
		t.Fatal("timed out waiting for signup event")
	}
}

type channelHandler struct {
	received chan Message
}

func (h *channelHandler) Handle(_ context.Context, msg Message) error {
	select {
	case h.received <- msg:
	default:
	}
	return nil
}
