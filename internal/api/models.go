package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/mail"
	"strings"

	"example.com/extracurricular/internal/domain"
)

// SignupRequest is the payload for POST /activities/{name}/signup.
type SignupRequest struct {
	Email string `json:"email"`
}

// Validate ensures the email is a single bare address. The institutional
// domain rule is enforced by the domain service.
func (r SignupRequest) Validate() error {
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("email must be a valid address")
	}
	return nil
}

// SignupResponse confirms a committed signup.
type SignupResponse struct {
	Message string `json:"message"`
}

// ActivityView is the public representation of an activity.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

func toActivityView(a domain.Activity) ActivityView {
	participants := a.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivityView{
		Description:     a.Description,
		Schedule:        a.Schedule,
		MaxParticipants: a.MaxParticipants,
		Participants:    participants,
	}
}

// activityIndex renders activities as a JSON object keyed by name, keeping
// registry order.
type activityIndex []domain.Activity

func toActivityIndex(activities []domain.Activity) activityIndex {
	return activityIndex(activities)
}

// MarshalJSON implements json.Marshaler.
func (idx activityIndex) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, activity := range idx {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(activity.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(toActivityView(activity))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
