package agent

import (
	"context"
	"fmt"
	"testing"

	"salestrainerdev/logger"
	"salestrainerdev/modelapi"
	"salestrainerdev/persona"
)

// scriptedRand returns the given draws in order and fails the test if the
// agent asks for more than scripted.
func scriptedRand(t *testing.T, draws ...float64) func() float64 {
	t.Helper()
	i := 0
	return func() float64 {
		if i >= len(draws) {
			t.Fatalf("rand called %d times, only %d draws scripted", i+1, len(draws))
		}
		v := draws[i]
		i++
		return v
	}
}

type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) GetProspectReply(ctx context.Context, args modelapi.ProspectReplyProps) (string, error) {
	return f.reply, f.err
}

func newTestAgent(t *testing.T, cfg Config, provider ChatProvider, rnd func() float64) *Agent {
	t.Helper()
	logMiddleware := logger.Connect(logger.LoggerConnectProps{Production: false})
	return Connect(context.Background(), AgentConnectProps{
		Logger: logMiddleware,
		Config: cfg,
		OpenAI: provider,
		Rand:   rnd,
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestReplyUsesRemoteProvider(t *testing.T) {
	a := newTestAgent(t,
		Config{Provider: ProviderOpenAI, MaxTokens: 120, Temperature: 0.7},
		&fakeProvider{reply: "  We might have budget next quarter.  "},
		scriptedRand(t),
	)

	got := a.Reply(context.Background(), "Do you have budget?", "Cold call", persona.Persona{Name: "Friendly"})
	if got != "We might have budget next quarter." {
		t.Errorf("Reply = %q, want the trimmed remote reply", got)
	}
}

func TestReplyFallsBackOnProviderError(t *testing.T) {
	a := newTestAgent(t,
		Config{Provider: ProviderOpenAI},
		&fakeProvider{err: fmt.Errorf("provider down")},
		scriptedRand(t, 0.0, 0.0),
	)

	got := a.Reply(context.Background(), "Hello?", "Cold call", persona.Persona{Name: "Friendly"})
	if got != ObjectionReplies[0] {
		t.Errorf("Reply = %q, want %q (r=0 is below every objection likelihood)", got, ObjectionReplies[0])
	}
}

func TestReplyFallsBackOnUnsupportedProvider(t *testing.T) {
	a := newTestAgent(t,
		Config{Provider: "watson"},
		&fakeProvider{reply: "never used"},
		scriptedRand(t, 0.99, 0.0),
	)

	got := a.Reply(context.Background(), "Hello?", "Cold call", persona.Persona{Name: "Friendly"})
	if got != AcknowledgementReplies[0] {
		t.Errorf("Reply = %q, want %q (r=0.99 is above the friendly likelihood)", got, AcknowledgementReplies[0])
	}
}

func TestReplyFallsBackOnUnconfiguredProvider(t *testing.T) {
	logMiddleware := logger.Connect(logger.LoggerConnectProps{Production: false})
	a := Connect(context.Background(), AgentConnectProps{
		Logger: logMiddleware,
		Config: Config{Provider: ProviderGroq},
		Rand:   scriptedRand(t, 0.0, 0.2),
	})

	got := a.Reply(context.Background(), "Hi", "Demo call", persona.Persona{Name: "Annoyed"})
	if !contains(ObjectionReplies, got) {
		t.Errorf("Reply = %q, want a phrase from the objection catalog", got)
	}
}

func TestFallbackIsContentBlind(t *testing.T) {
	// The fallback never fails and always answers from its catalogs, no
	// matter what the rep said — including nothing at all.
	for _, userText := range []string{"", "   ", "Buy now!", "??!"} {
		a := newTestAgent(t,
			Config{Provider: ProviderOpenAI},
			&fakeProvider{err: fmt.Errorf("boom")},
			scriptedRand(t, 0.5, 0.5),
		)

		got := a.Reply(context.Background(), userText, "Cold call", persona.Persona{Name: "Annoyed"})
		if got == "" {
			t.Fatalf("Reply(%q) returned empty string", userText)
		}
		if !contains(ObjectionReplies, got) && !contains(AcknowledgementReplies, got) {
			t.Errorf("Reply(%q) = %q, not from either catalog", userText, got)
		}
	}
}

func TestFallbackBranchesOnObjectionLikelihood(t *testing.T) {
	// Skeptical likelihood is 0.6: a draw just below it objects, a draw at
	// it acknowledges.
	cases := []struct {
		draw      float64
		fromList  []string
		wantLabel string
	}{
		{0.59, ObjectionReplies, "objection"},
		{0.60, AcknowledgementReplies, "acknowledgement"},
	}

	for _, c := range cases {
		a := newTestAgent(t,
			Config{Provider: ProviderOpenAI},
			&fakeProvider{err: fmt.Errorf("boom")},
			scriptedRand(t, c.draw, 0.0),
		)

		got := a.Reply(context.Background(), "pitch", "Cold call", persona.Persona{Name: "Skeptical"})
		if !contains(c.fromList, got) {
			t.Errorf("draw %v: Reply = %q, want an %s", c.draw, got, c.wantLabel)
		}
	}
}

func TestReplyFallsBackOnEmptyRemoteReply(t *testing.T) {
	a := newTestAgent(t,
		Config{Provider: ProviderOpenAI},
		&fakeProvider{reply: "   "},
		scriptedRand(t, 0.99, 0.0),
	)

	got := a.Reply(context.Background(), "Hello?", "Cold call", persona.Persona{Name: "Friendly"})
	if !contains(AcknowledgementReplies, got) {
		t.Errorf("Reply = %q, want a catalog phrase for a blank remote reply", got)
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_MAX_TOKENS", "")

	cfg := ConfigFromEnv()

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderOpenAI)
	}
	if cfg.MaxTokens != 120 {
		t.Errorf("MaxTokens = %d, want 120", cfg.MaxTokens)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Temperature)
	}
	if cfg.Model != "" {
		t.Errorf("Model = %q, want empty (provider default)", cfg.Model)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("LLM_MODEL", "llama-3.3-70b-versatile")
	t.Setenv("LLM_MAX_TOKENS", "256")

	cfg := ConfigFromEnv()

	if cfg.Provider != ProviderGroq {
		t.Errorf("Provider = %q, want groq", cfg.Provider)
	}
	if cfg.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", cfg.MaxTokens)
	}
}
