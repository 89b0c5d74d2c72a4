package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"example.com/extracurricular/pkg/events"
)

func TestAuditHandlerInsertsSignupEvent(t *testing.T) {
	db := &recordingExecer{}
	handler := NewAuditHandler(db)

	occurred := time.Date(2025, time.September, 5, 15, 30, 0, 0, time.UTC)
	payload, err := json.Marshal(events.SignupRecorded{
		EventID:          "evt-1",
		ActivityName:     "Chess Club",
		Email:            "new@mergington.edu",
		ParticipantCount: 3,
		MaxParticipants:  12,
		OccurredAt:       occurred,
	})
	require.NoError(t, err)

	msg := Message{
		Topic:         "activity_signups",
		Partition:     1,
		Offset:        77,
		EventType:     events.SignupRecordedType,
		SchemaSubject: "activity_signups-value",
		SchemaID:      4,
		Payload:       payload,
		Timestamp:     occurred.Add(time.Second),
	}
	require.NoError(t, handler.Handle(context.Background(), msg))

	require.Len(t, db.calls, 1)
	args := db.calls[0]
	require.Equal(t, "evt-1", args[0])
	require.Equal(t, "Chess Club", args[1])
	require.Equal(t, "new@mergington.edu", args[2])
	require.Equal(t, 3, args[3])
	require.Equal(t, 12, args[4])
	require.True(t, occurred.Equal(args[5].(time.Time)))
	require.Equal(t, 4, args[6])
	require.Equal(t, int64(77), args[10])
}

func TestAuditHandlerSkipsUnknownEventTypes(t *testing.T) {
	db := &recordingExecer{}
	handler := NewAuditHandler(db)

	err := handler.Handle(context.Background(), Message{EventType: "activity.renamed", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.Empty(t, db.calls)
}

func TestAuditHandlerRejectsIncompleteEvents(t *testing.T) {
	handler := NewAuditHandler(&recordingExecer{})

	err := handler.Handle(context.Background(), Message{
		EventType: events.SignupRecordedType,
		Payload:   json.RawMessage(`{"event_id":"evt-9"}`),
	})
	require.ErrorIs(t, err, ErrInvalidEvent)

	err = handler.Handle(context.Background(), Message{
		EventType: events.SignupRecordedType,
		Payload:   json.RawMessage(`[]`),
	})
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestAuditHandlerWrapsDatabaseErrors(t *testing.T) {
	dbErr := errors.New("connection reset")
	handler := NewAuditHandler(&recordingExecer{err: dbErr})

	err := handler.Handle(context.Background(), Message{
		EventType: events.SignupRecordedType,
		Payload:   json.RawMessage(`{"event_id":"evt-1","activity_name":"Art Studio","email":"ava@mergington.edu"}`),
	})
	require.ErrorIs(t, err, dbErr)
}

type recordingExecer struct {
	calls [][]any
	err   error
}

func (e *recordingExecer) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	e.calls = append(e.calls, args)
	return pgconn.NewCommandTag("INSERT 0 1"), e.err
}
