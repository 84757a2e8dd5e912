package sessionstore

import (
	"context"
	"strings"
	"testing"

	"salestrainerdev/conversation"
	"salestrainerdev/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logMiddleware := logger.Connect(logger.LoggerConnectProps{Production: false})
	store, err := Connect(StoreConnectProps{Logger: logMiddleware, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := conversation.NewSession("Cold call", "Friendly")
	session.Append(conversation.SpeakerRep, "Hi, quick question about your stack.")
	session.Append(conversation.SpeakerAI, "Okay, tell me more.")

	name, err := store.Save(ctx, session)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(name, "session_") || !strings.HasSuffix(name, ".json") {
		t.Errorf("snapshot name = %q, want session_*.json", name)
	}

	turns, err := store.Load(ctx, name)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("loaded %d turns, want 2", len(turns))
	}
	if turns[0].Speaker != conversation.SpeakerRep || turns[1].Speaker != conversation.SpeakerAI {
		t.Errorf("speakers = %q, %q", turns[0].Speaker, turns[1].Speaker)
	}
	if turns[0].Text != "Hi, quick question about your stack." {
		t.Errorf("text = %q", turns[0].Text)
	}
}

func TestListReturnsSavedSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := conversation.NewSession("Demo call", "Skeptical")
	session.Append(conversation.SpeakerRep, "Hello.")

	first, err := store.Save(ctx, session)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := store.Save(ctx, session)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	names, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("List returned %d names, want 2", len(names))
	}

	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found[first] || !found[second] {
		t.Errorf("List %v missing a saved snapshot (%q, %q)", names, first, second)
	}
}

func TestLoadRejectsPathEscapes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"../secrets.json", "/etc/passwd", "nosuffix"} {
		if _, err := store.Load(ctx, name); err == nil {
			t.Errorf("Load(%q) succeeded, want error", name)
		}
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Load(context.Background(), "session_missing.json"); err == nil {
		t.Error("Load of a missing snapshot succeeded, want error")
	}
}
