package modelapi

// ProspectReplyProps is the shared request shape every chat provider client
// accepts: a system instruction, the wrapped rep turn, and bounded sampling
// settings. Model may be empty, in which case the client uses its own
// default.
type ProspectReplyProps struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	MaxTokens    int
	Temperature  float64
}
