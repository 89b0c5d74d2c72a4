package outbox

const signupRecordedSchema = `{
  "type": "object",
  "title": "SignupRecorded",
  "properties": {
    "event_id": {"type": "string"},
    "activity_name": {"type": "string"},
    "email": {"type": "string", "format": "email"},
    "participant_count": {"type": "integer", "minimum": 1},
    "max_participants": {"type": "integer", "minimum": 1},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "activity_name", "email", "participant_count", "max_participants", "occurred_at"],
  "additionalProperties": false
}`
