package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"example.com/extracurricular/pkg/events"
)

// ErrInvalidEvent marks payloads that decode but are missing required fields.
var ErrInvalidEvent = errors.New("invalid signup event")

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditHandler records signup events in the signup_event_log table.
type AuditHandler struct {
	db execer
}

// NewAuditHandler constructs a handler backed by db, typically a *pgxpool.Pool.
func NewAuditHandler(db execer) *AuditHandler {
	return &AuditHandler{db: db}
}

const insertSignupEvent = `INSERT INTO signup_event_log
        (event_id, activity_name, email, participant_count, max_participants, occurred_at, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (event_id) DO NOTHING`

// Handle stores one signup event. Unknown event types are ignored and
// redelivered events are deduplicated by event id.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.SignupRecordedType {
		recordSkipped(msg.EventType)
		return nil
	}

	var event events.SignupRecorded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.ActivityName) == "" || strings.TrimSpace(event.Email) == "" {
		return fmt.Errorf("%w: event_id, activity_name and email are required", ErrInvalidEvent)
	}

	_, err := h.db.Exec(ctx, insertSignupEvent,
		event.EventID,
		event.ActivityName,
		event.Email,
		event.ParticipantCount,
		event.MaxParticipants,
		event.OccurredAt,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Payload),
		msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert signup event %s: %w", event.EventID, err)
	}
	return nil
}
