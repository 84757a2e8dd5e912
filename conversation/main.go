package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerRep Speaker = "rep"
	SpeakerAI  Speaker = "ai"
)

// Turn is one utterance in a practice call. Immutable once appended.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Scenarios is the closed set of call scenarios surfaced to the UI. Scoring
// treats the label as an opaque string, so new labels only need to be added
// here.
var Scenarios = []string{
	"Cold call",
	"Follow-up call",
	"Demo call",
	"Pricing/negotiation call",
	"Renewal call",
}

// KnownScenario reports whether label is one of the cataloged scenarios.
func KnownScenario(label string) bool {
	for _, s := range Scenarios {
		if s == label {
			return true
		}
	}
	return false
}

// Session is the append-only log of turns for one practice call. One session
// is owned by one active interaction at a time; the type itself does not
// lock. The model deliberately allows two turns by the same speaker in a row
// (retries, edits) — only the UI convention alternates them.
type Session struct {
	Scenario string
	Persona  string

	turns []Turn
}

// NewSession starts an empty session for the given scenario and persona.
func NewSession(scenario, personaName string) *Session {
	return &Session{Scenario: scenario, Persona: personaName}
}

// Append records a new turn at the end of the session. Text is trimmed
// first; appending empty or whitespace-only text is an input error and
// leaves the session unmodified. Timestamps are taken at append time and
// never decrease within a session.
func (s *Session) Append(speaker Speaker, text string) (Turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Turn{}, fmt.Errorf("empty turn text")
	}

	ts := time.Now().UTC()
	if n := len(s.turns); n > 0 && ts.Before(s.turns[n-1].Timestamp) {
		ts = s.turns[n-1].Timestamp
	}

	turn := Turn{Speaker: speaker, Text: trimmed, Timestamp: ts}
	s.turns = append(s.turns, turn)
	return turn, nil
}

// Turns returns a copy of the session's turns in conversational order.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of committed turns.
func (s *Session) Len() int {
	return len(s.turns)
}

// Reset clears the session back to empty. Scenario and persona stay as
// selected.
func (s *Session) Reset() {
	s.turns = nil
}

// Snapshot returns the turns as an independently marshalable record, the
// shape that gets persisted: an ordered array of {speaker, text, timestamp}.
func (s *Session) Snapshot() []Turn {
	return s.Turns()
}
