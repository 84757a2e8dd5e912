package agent

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"salestrainerdev/logger"
	"salestrainerdev/modelapi"
	"salestrainerdev/persona"
)

// Supported LLM provider selectors.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

const (
	defaultProvider    = ProviderOpenAI
	defaultMaxTokens   = 120
	defaultTemperature = 0.7
)

// Config is the explicit configuration for the reply generator. It is
// constructed once and passed in, never read from ambient globals, so tests
// can inject whatever they need.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ConfigFromEnv builds a Config from LLM_PROVIDER, LLM_API_KEY and LLM_MODEL,
// with the documented defaults filled in. An empty model means the selected
// provider client uses its own default. Optional LLM_MAX_TOKENS overrides the
// reply size bound.
func ConfigFromEnv() Config {
	cfg := Config{
		Provider:    os.Getenv("LLM_PROVIDER"),
		APIKey:      os.Getenv("LLM_API_KEY"),
		Model:       os.Getenv("LLM_MODEL"),
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	return cfg
}

// ChatProvider is the narrow contract a remote LLM client must satisfy.
type ChatProvider interface {
	GetProspectReply(ctx context.Context, args modelapi.ProspectReplyProps) (string, error)
}

// ObjectionReplies is the fixed catalog the heuristic fallback draws
// objections from.
var ObjectionReplies = []string{
	"I’m not interested.",
	"Send me an email with details.",
	"We don’t have budget for that.",
	"We already use another vendor.",
	"This isn't a priority for us right now.",
}

// AcknowledgementReplies is the fixed catalog of short non-objection replies.
var AcknowledgementReplies = []string{
	"Okay, tell me more.",
	"How much is it?",
	"What makes you different?",
}

type AgentConnectProps struct {
	Logger *logger.LogMiddleware
	Config Config

	// Provider clients; only the one selected by Config.Provider is used.
	// A nil selected client is a configuration error handled at call time.
	OpenAI ChatProvider
	Gemini ChatProvider
	Groq   ChatProvider

	// Rand supplies uniform draws in [0,1) for the heuristic fallback. Nil
	// uses math/rand; tests script it to pin both branches.
	Rand func() float64
}

// Agent produces the prospect's next utterance. Reply is total: whatever the
// remote provider does, the caller always gets a non-empty string back.
type Agent struct {
	logger *logger.LogMiddleware
	config Config
	openai ChatProvider
	gemini ChatProvider
	groq   ChatProvider
	rand   func() float64
}

func Connect(ctx context.Context, args AgentConnectProps) *Agent {
	tracer := otel.Tracer("agent/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	span.SetAttributes(
		attribute.String("provider", args.Config.Provider),
		attribute.String("model", args.Config.Model),
	)
	args.Logger.Logger(ctx).Info("[Agent] Reply generator ready",
		zap.String("provider", args.Config.Provider),
		zap.String("model", args.Config.Model),
	)

	rnd := args.Rand
	if rnd == nil {
		rnd = rand.Float64
	}

	return &Agent{
		logger: args.Logger,
		config: args.Config,
		openai: args.OpenAI,
		gemini: args.Gemini,
		groq:   args.Groq,
		rand:   rnd,
	}
}

// Reply returns the prospect's next utterance for the rep's text. Any remote
// failure — unsupported provider, network error, provider error — is absorbed
// here and answered from the heuristic fallback; a practice session must
// never stall because a remote dependency is down.
func (a *Agent) Reply(ctx context.Context, userText, scenario string, p persona.Persona) string {
	tracer := otel.Tracer("agent/Reply")
	ctx, span := tracer.Start(ctx, "Reply")
	defer span.End()

	span.SetAttributes(
		attribute.String("scenario", scenario),
		attribute.String("persona", p.Name),
	)

	prof := p.Profile()
	systemPrompt := fmt.Sprintf(modelapi.PROSPECT_SYSTEM_PROMPT, scenario, p.Name, prof.Tone, prof.Verbosity)
	userPrompt := fmt.Sprintf(modelapi.USER_TURN_PROMPT, userText)

	text, err := a.remoteReply(ctx, systemPrompt, userPrompt)
	if err != nil {
		span.RecordError(err)
		a.logger.Logger(ctx).Warn("[Agent] Remote reply failed, using heuristic fallback",
			zap.Error(err),
			zap.String("provider", a.config.Provider),
		)
		return a.heuristicReply(prof)
	}

	reply := strings.TrimSpace(text)
	if reply == "" {
		span.AddEvent("Empty remote reply")
		return a.heuristicReply(prof)
	}
	return reply
}

// remoteReply routes the request to the configured provider. The error
// carries the failure class; the caller decides what to do with it.
func (a *Agent) remoteReply(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	props := modelapi.ProspectReplyProps{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Model:        a.config.Model,
		MaxTokens:    a.config.MaxTokens,
		Temperature:  a.config.Temperature,
	}

	var client ChatProvider
	switch a.config.Provider {
	case ProviderOpenAI:
		client = a.openai
	case ProviderGemini:
		client = a.gemini
	case ProviderGroq:
		client = a.groq
	default:
		return "", fmt.Errorf("unsupported LLM provider: %q", a.config.Provider)
	}
	if client == nil {
		return "", fmt.Errorf("LLM provider %q not configured", a.config.Provider)
	}

	return client.GetProspectReply(ctx, props)
}

// heuristicReply is the content-blind degraded mode: an objection with the
// persona's likelihood, a short acknowledgement otherwise. It cannot fail.
func (a *Agent) heuristicReply(prof persona.Profile) string {
	if a.rand() < prof.ObjectionLikelihood {
		return ObjectionReplies[int(a.rand()*float64(len(ObjectionReplies)))]
	}
	return AcknowledgementReplies[int(a.rand()*float64(len(AcknowledgementReplies)))]
}
