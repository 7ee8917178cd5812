package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event payload types published on session lifecycle changes

// Type names a session lifecycle event.
type Type string

const (
	TypeSessionStarted  Type = "session_started"
	TypeSessionPaused   Type = "session_paused"
	TypeSessionResumed  Type = "session_resumed"
	TypeSessionFinished Type = "session_finished"
)

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name"`
	Kind        string    `json:"kind"`
	Duration    string    `json:"duration"`
	StartedAt   time.Time `json:"started_at"`
	DeadlineAt  time.Time `json:"deadline_at"`
}

// SessionPausedPayload is the payload for a SessionPaused event
type SessionPausedPayload struct {
	SessionID string    `json:"session_id"`
	PausedAt  time.Time `json:"paused_at"`
	Remaining string    `json:"remaining"`
}

// SessionResumedPayload is the payload for a SessionResumed event
type SessionResumedPayload struct {
	SessionID  string    `json:"session_id"`
	ResumedAt  time.Time `json:"resumed_at"`
	DeadlineAt time.Time `json:"deadline_at"`
}

// SessionFinishedPayload is the payload for a SessionFinished event
type SessionFinishedPayload struct {
	SessionID        string    `json:"session_id"`
	SessionName      string    `json:"session_name"`
	Kind             string    `json:"kind"`
	FinishedAt       time.Time `json:"finished_at"`
	Overtime         string    `json:"overtime"`
	Manual           bool      `json:"manual"`
	EarnedExperience int64     `json:"earned_experience,omitempty"`
	LeveledUp        bool      `json:"leveled_up,omitempty"`
}

// Envelope wraps a payload with the metadata every consumer needs.
type Envelope struct {
	ID        uuid.UUID       `json:"event_id"`
	Type      Type            `json:"event_type"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// New marshals payload into a fresh envelope.
func New(t Type, sessionID string, at time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{
		ID:        uuid.New(),
		Type:      t,
		SessionID: sessionID,
		Timestamp: at.UTC(),
		Payload:   data,
	}, nil
}
