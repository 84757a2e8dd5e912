package conversation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAppendTrimsText(t *testing.T) {
	s := NewSession("Cold call", "Friendly")

	turn, err := s.Append(SpeakerRep, "  Hello there.  ")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if turn.Text != "Hello there." {
		t.Errorf("text = %q, want trimmed %q", turn.Text, "Hello there.")
	}
}

func TestAppendRejectsEmptyText(t *testing.T) {
	s := NewSession("Cold call", "Friendly")

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := s.Append(SpeakerRep, text); err == nil {
			t.Errorf("Append(%q) succeeded, want error", text)
		}
	}
	if s.Len() != 0 {
		t.Errorf("session has %d turns after rejected appends, want 0", s.Len())
	}
}

func TestAppendOnly(t *testing.T) {
	s := NewSession("Demo call", "Skeptical")

	s.Append(SpeakerRep, "First line.")
	s.Append(SpeakerAI, "Okay, tell me more.")
	before := s.Turns()

	s.Append(SpeakerRep, "Second line.")
	after := s.Turns()

	if len(after) != 3 {
		t.Fatalf("len = %d, want 3", len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("turn %d changed after append: %+v vs %+v", i, after[i], before[i])
		}
	}
}

func TestAppendAllowsSameSpeakerTwice(t *testing.T) {
	s := NewSession("Cold call", "Friendly")

	if _, err := s.Append(SpeakerRep, "First try."); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := s.Append(SpeakerRep, "Let me rephrase that."); err != nil {
		t.Errorf("two rep turns in a row rejected: %v", err)
	}
}

func TestTimestampsNonDecreasing(t *testing.T) {
	s := NewSession("Cold call", "Friendly")

	for i := 0; i < 5; i++ {
		s.Append(SpeakerRep, "line")
	}

	turns := s.Turns()
	for i := 1; i < len(turns); i++ {
		if turns[i].Timestamp.Before(turns[i-1].Timestamp) {
			t.Errorf("timestamp %d precedes timestamp %d", i, i-1)
		}
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	s := NewSession("Cold call", "Friendly")
	s.Append(SpeakerRep, "Original.")

	turns := s.Turns()
	turns[0].Text = "Mutated."

	if s.Turns()[0].Text != "Original." {
		t.Error("mutating the returned slice changed the session")
	}
}

func TestReset(t *testing.T) {
	s := NewSession("Renewal call", "Annoyed")
	s.Append(SpeakerRep, "Hello.")
	s.Append(SpeakerAI, "How much is it?")

	s.Reset()

	if s.Len() != 0 {
		t.Errorf("len = %d after Reset, want 0", s.Len())
	}
	if s.Scenario != "Renewal call" || s.Persona != "Annoyed" {
		t.Error("Reset changed scenario or persona selection")
	}
}

func TestSnapshotJSONShape(t *testing.T) {
	s := NewSession("Cold call", "Friendly")
	s.Append(SpeakerRep, "Hi there.")
	s.Append(SpeakerAI, "I'm not interested.")

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var records []struct {
		Speaker   string `json:"speaker"`
		Text      string `json:"text"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Speaker != "rep" || records[1].Speaker != "ai" {
		t.Errorf("speakers = %q, %q, want rep, ai", records[0].Speaker, records[1].Speaker)
	}
	if _, err := time.Parse(time.RFC3339Nano, records[0].Timestamp); err != nil {
		t.Errorf("timestamp %q is not ISO-8601: %v", records[0].Timestamp, err)
	}
	if !strings.Contains(string(data), `"speaker"`) {
		t.Errorf("snapshot JSON missing speaker field: %s", data)
	}
}
