package chat

import "time"

// EventType names the observable changes of a session.
type EventType string

const (
	EventTurn   EventType = "turn"
	EventTyping EventType = "typing"
	EventClosed EventType = "closed"
)

// Event is pushed to session subscribers.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	Turn      *Turn     `json:"turn,omitempty"`
	Typing    bool      `json:"typing"`
	Pending   int       `json:"pending"`
	At        time.Time `json:"at"`
}
