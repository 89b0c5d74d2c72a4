// Package events defines event payloads shared by the API and the audit consumer.
package events

import "time"

// SignupRecordedType is the event_type header value for SignupRecorded.
const SignupRecordedType = "activity.signup_recorded"

// SignupRecorded is emitted after a student is added to an activity roster.
type SignupRecorded struct {
	EventID          string    `json:"event_id"`
	ActivityName     string    `json:"activity_name"`
	Email            string    `json:"email"`
	ParticipantCount int       `json:"participant_count"`
	MaxParticipants  int       `json:"max_participants"`
	OccurredAt       time.Time `json:"occurred_at"`
}
