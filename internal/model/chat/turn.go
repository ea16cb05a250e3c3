package chat

import "time"

// Sender identifies who authored a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Turn is one message in a conversation. Turns are never mutated once
// appended to a session.
type Turn struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Sender      Sender    `json:"sender"`
	Timestamp   time.Time `json:"timestamp"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// Clone returns a copy that shares no backing arrays with t.
func (t Turn) Clone() Turn {
	if t.Suggestions != nil {
		t.Suggestions = append([]string(nil), t.Suggestions...)
	}
	return t
}

// CloneTurns deep-copies a turn slice.
func CloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = t.Clone()
	}
	return out
}
