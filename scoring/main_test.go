package scoring

import (
	"reflect"
	"strings"
	"testing"

	"salestrainerdev/conversation"
)

func buildSession(t *testing.T, scenario string, turns ...conversation.Turn) *conversation.Session {
	t.Helper()
	s := conversation.NewSession(scenario, "Friendly")
	for _, turn := range turns {
		if _, err := s.Append(turn.Speaker, turn.Text); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return s
}

func TestScoreEmptySession(t *testing.T) {
	s := conversation.NewSession("Cold call", "Friendly")

	r := Score(s)

	if r.ConfidenceScore != 20 {
		t.Errorf("confidence = %d, want 20", r.ConfidenceScore)
	}
	if r.ObjectionScore != 100 {
		t.Errorf("objection = %d, want 100", r.ObjectionScore)
	}
	// round(20*0.5 + 100*0.4 + 0) = 50
	if r.OutcomeRating != 50 {
		t.Errorf("outcome = %d, want 50", r.OutcomeRating)
	}

	found := false
	for _, tip := range r.Tips {
		if strings.Contains(tip, "expand your responses") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the expand-responses tip for an empty transcript, got %v", r.Tips)
	}
}

func TestScoreUnhandledObjection(t *testing.T) {
	s := buildSession(t, "Pricing/negotiation call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "Hi, I'd like to schedule a meeting next week."},
		conversation.Turn{Speaker: conversation.SpeakerAI, Text: "We already use another vendor."},
	)

	r := Score(s)

	// 20 + 2*9 words + 10*1 ("schedule") = 48
	if r.ConfidenceScore != 48 {
		t.Errorf("confidence = %d, want 48", r.ConfidenceScore)
	}
	// one objection, zero rep turns with remedy words
	if r.ObjectionScore != 0 {
		t.Errorf("objection = %d, want 0", r.ObjectionScore)
	}
	// "pricing/negotiation" does not appear in the rep text: round(48*0.5) = 24
	if r.OutcomeRating != 24 {
		t.Errorf("outcome = %d, want 24", r.OutcomeRating)
	}
}

func TestScoreHandledCountsTurnsNotPhrases(t *testing.T) {
	s := buildSession(t, "Demo call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "The price is fair and the roi is proven."},
		conversation.Turn{Speaker: conversation.SpeakerAI, Text: "I'm not interested. Send me an email."},
	)

	r := Score(s)

	// Two objection phrases matched, one rep turn with remedy words; a turn
	// with both "price" and "roi" still handles exactly one objection.
	if r.ObjectionScore != 50 {
		t.Errorf("objection = %d, want 50", r.ObjectionScore)
	}
}

func TestScoreZeroAITurns(t *testing.T) {
	s := buildSession(t, "Cold call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "Let me tell you about our product."},
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "It saves teams hours every week."},
	)

	r := Score(s)

	if r.ObjectionScore != 100 {
		t.Errorf("objection = %d with no ai turns, want 100", r.ObjectionScore)
	}
}

func TestScoreScenarioMatchBonus(t *testing.T) {
	without := buildSession(t, "Demo call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "Let's talk next week."},
	)
	with := buildSession(t, "Demo call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "Let's do a demo next week."},
	)

	a := Score(without)
	b := Score(with)

	if b.OutcomeRating <= a.OutcomeRating {
		t.Errorf("scenario match should raise the outcome: %d vs %d", b.OutcomeRating, a.OutcomeRating)
	}
}

func TestScoreBounds(t *testing.T) {
	long := strings.Repeat("schedule a demo and sign the agreement today ", 30)
	s := buildSession(t, "Cold call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: long},
		conversation.Turn{Speaker: conversation.SpeakerAI, Text: "We already use another vendor. No budget. Not a priority."},
	)

	r := Score(s)

	for name, v := range map[string]int{
		"confidence": r.ConfidenceScore,
		"objection":  r.ObjectionScore,
		"outcome":    r.OutcomeRating,
	} {
		if v < 0 || v > 100 {
			t.Errorf("%s = %d, outside [0,100]", name, v)
		}
	}
	if r.ConfidenceScore != 100 {
		t.Errorf("confidence = %d for a very long action-heavy pitch, want clamp at 100", r.ConfidenceScore)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := buildSession(t, "Renewal call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "Can we schedule the renewal and talk price?"},
		conversation.Turn{Speaker: conversation.SpeakerAI, Text: "Send me an email with details."},
	)

	first := Score(s)
	second := Score(s)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}

func TestRemedyMatchingIsUnanchoredSubstring(t *testing.T) {
	// "costume" contains "cost"; kept for compatibility with the matching
	// the score history was built on.
	s := buildSession(t, "Cold call",
		conversation.Turn{Speaker: conversation.SpeakerRep, Text: "Nice costume by the way."},
		conversation.Turn{Speaker: conversation.SpeakerAI, Text: "I'm not interested."},
	)

	r := Score(s)

	if r.ObjectionScore != 100 {
		t.Errorf("objection = %d, want 100: one objection, one (substring) handled turn", r.ObjectionScore)
	}
}
