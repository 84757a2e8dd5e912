package scoring

import (
	"math"
	"strings"

	"salestrainerdev/conversation"
)

// Result is the coaching readout for one session. Scores are integers in
// [0,100]; tips fire in a fixed order and may be empty.
type Result struct {
	ConfidenceScore int      `json:"confidence_score"`
	ObjectionScore  int      `json:"objection_score"`
	OutcomeRating   int      `json:"outcome_rating"`
	Tips            []string `json:"tips"`
}

// actionWords signal forward motion in the rep's language.
var actionWords = []string{
	"schedule", "book", "demo", "try", "purchase", "sign", "agree", "next step",
}

// objectionPhrases are the resistance lines the simulated prospect may use.
// Matching is unanchored substring search, kept byte-for-byte compatible with
// the prior tool, apostrophe variants included.
var objectionPhrases = []string{
	"i'm not interested",
	"send me an email",
	"we don’t have budget",
	"we already use another vendor",
	"not a priority",
	"no budget",
	"send info",
}

// remedyWords count as evidence the rep addressed an objection.
var remedyWords = []string{
	"price", "discount", "roi", "benefit", "save", "cost", "timeline", "implementation",
}

// Score derives the coaching scores and tips from a session. It is pure and
// deterministic: no randomness, no external calls, and an empty session is a
// valid input (confidence 20, objection 100, outcome 50).
func Score(session *conversation.Session) Result {
	var repTurns, aiTurns []string
	for _, t := range session.Turns() {
		switch t.Speaker {
		case conversation.SpeakerRep:
			repTurns = append(repTurns, strings.ToLower(t.Text))
		case conversation.SpeakerAI:
			aiTurns = append(aiTurns, strings.ToLower(t.Text))
		}
	}
	repText := strings.Join(repTurns, " ")
	aiText := strings.Join(aiTurns, " ")

	wordCount := len(strings.Fields(repText))

	actionHits := 0
	for _, w := range actionWords {
		actionHits += strings.Count(repText, w)
	}
	confidence := clamp(20 + 2*wordCount + 10*actionHits)

	objectionCount := 0
	for _, o := range objectionPhrases {
		objectionCount += strings.Count(aiText, o)
	}

	// Handled counts rep turns, not matched phrases: one turn mentioning both
	// "price" and "roi" still handles one objection.
	handled := 0
	for _, turn := range repTurns {
		for _, r := range remedyWords {
			if strings.Contains(turn, r) {
				handled++
				break
			}
		}
	}

	objectionScore := 100
	if objectionCount > 0 {
		objectionScore = clamp(int(math.Round(100 * float64(handled) / float64(objectionCount))))
	}

	scenarioMatch := 0
	if fields := strings.Fields(strings.ToLower(session.Scenario)); len(fields) > 0 && strings.Contains(repText, fields[0]) {
		scenarioMatch = 1
	}

	outcome := clamp(int(math.Round(float64(confidence)*0.5 + float64(objectionScore)*0.4 + float64(scenarioMatch)*10)))

	var tips []string
	if confidence < 40 {
		tips = append(tips, "Use more action-oriented phrases (e.g., 'Can we schedule a demo', 'Let's book 30 minutes').")
	}
	if objectionScore < 60 {
		tips = append(tips, "Practice handling objections: acknowledge, probe, and present a concise value response (price/ROI).")
	}
	if wordCount < 10 {
		tips = append(tips, "Try to expand your responses with clear next steps and benefits.")
	}

	return Result{
		ConfidenceScore: confidence,
		ObjectionScore:  objectionScore,
		OutcomeRating:   outcome,
		Tips:            tips,
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
