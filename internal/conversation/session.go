package conversation

import (
	"time"
)

// Session is one conversation with the remote agent. Its turns are append-only.
type Session struct {
	ID        string
	CreatedAt time.Time
	// Reused is true when the id was loaded from the store and accepted by the agent.
	Reused bool

	turns []Turn
}

// Turn is one request/reply exchange.
type Turn struct {
	Index     int       `json:"sequence_index"`
	Request   string    `json:"request_text"`
	Reply     string    `json:"reply_text"`
	MessageID string    `json:"message_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Turns returns a copy of the turns recorded so far.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// NextIndex is the sequence index the next turn will get.
func (s *Session) NextIndex() int {
	if len(s.turns) == 0 {
		return 1
	}
	return s.turns[len(s.turns)-1].Index + 1
}

func (s *Session) append(t Turn) {
	s.turns = append(s.turns, t)
}
