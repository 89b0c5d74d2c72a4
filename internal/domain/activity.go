package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Activity is a named extracurricular offering together with its roster.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// Clone returns a copy that shares no memory with the receiver.
func (a Activity) Clone() Activity {
	a.Participants = slices.Clone(a.Participants)
	if a.Participants == nil {
		a.Participants = []string{}
	}
	return a
}

// IsFull reports whether the roster has reached capacity.
func (a Activity) IsFull() bool {
	return len(a.Participants) >= a.MaxParticipants
}

// HasParticipant reports whether email is already on the roster.
func (a Activity) HasParticipant(email string) bool {
	return slices.Contains(a.Participants, NormalizeEmail(email))
}

// SpotsLeft returns the remaining capacity.
func (a Activity) SpotsLeft() int {
	if left := a.MaxParticipants - len(a.Participants); left > 0 {
		return left
	}
	return 0
}

// Validate checks the roster invariants: positive capacity, no duplicate
// participants and no more participants than capacity.
func (a Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("activity name is required")
	}
	if a.MaxParticipants <= 0 {
		return fmt.Errorf("activity %q: max_participants must be > 0", a.Name)
	}
	if len(a.Participants) > a.MaxParticipants {
		return fmt.Errorf("activity %q: %d participants exceed capacity %d", a.Name, len(a.Participants), a.MaxParticipants)
	}
	seen := make(map[string]struct{}, len(a.Participants))
	for _, p := range a.Participants {
		email := NormalizeEmail(p)
		if email == "" {
			return fmt.Errorf("activity %q: empty participant email", a.Name)
		}
		if _, dup := seen[email]; dup {
			return fmt.Errorf("activity %q: duplicate participant %s", a.Name, email)
		}
		seen[email] = struct{}{}
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup describes a roster change that was just committed.
type Signup struct {
	ActivityName     string
	Email            string
	ParticipantCount int
	MaxParticipants  int
	OccurredAt       time.Time
}
