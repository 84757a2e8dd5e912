package persona

// Verbosity buckets how long the prospect's replies should run.
type Verbosity string

const (
	VerbosityShort    Verbosity = "short"
	VerbosityMedium   Verbosity = "medium"
	VerbosityDetailed Verbosity = "detailed"
)

// Profile is the behavioral profile behind a persona name: how the prospect
// sounds, how much they say, and how likely they are to push back.
type Profile struct {
	Tone                string
	Verbosity           Verbosity
	ObjectionLikelihood float64
}

// Persona is a named prospect archetype. Construct one per practice session
// from the user's selection; it is immutable after that.
type Persona struct {
	Name string
}

var profiles = map[string]Profile{
	"Friendly":        {Tone: "friendly", Verbosity: VerbosityMedium, ObjectionLikelihood: 0.25},
	"Skeptical":       {Tone: "skeptical", Verbosity: VerbosityShort, ObjectionLikelihood: 0.6},
	"Rushed":          {Tone: "rushed", Verbosity: VerbosityShort, ObjectionLikelihood: 0.45},
	"Annoyed":         {Tone: "annoyed", Verbosity: VerbosityShort, ObjectionLikelihood: 0.7},
	"Technical buyer": {Tone: "technical", Verbosity: VerbosityDetailed, ObjectionLikelihood: 0.4},
	"Economic buyer":  {Tone: "pragmatic", Verbosity: VerbosityMedium, ObjectionLikelihood: 0.5},
}

var defaultProfile = Profile{Tone: "neutral", Verbosity: VerbosityMedium, ObjectionLikelihood: 0.3}

// defaultNames keeps the menu ordering stable across runs.
var defaultNames = []string{
	"Friendly",
	"Skeptical",
	"Rushed",
	"Annoyed",
	"Technical buyer",
	"Economic buyer",
}

// ProfileFor looks up the behavioral profile for a persona name. Unknown
// names fall back to the neutral default profile; the lookup never fails so
// any string label keeps the session usable.
func ProfileFor(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return defaultProfile
}

// Profile returns the behavioral profile for this persona.
func (p Persona) Profile() Profile {
	return ProfileFor(p.Name)
}

// Names returns the catalog of known persona names in menu order.
func Names() []string {
	out := make([]string, len(defaultNames))
	copy(out, defaultNames)
	return out
}

// Known reports whether name is one of the cataloged personas.
func Known(name string) bool {
	_, ok := profiles[name]
	return ok
}
