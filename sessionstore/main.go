package sessionstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"salestrainerdev/conversation"
	"salestrainerdev/logger"
)

// maxListed caps the admin view, newest first.
const maxListed = 50

type StoreConnectProps struct {
	Logger *logger.LogMiddleware
	Dir    string
}

// Store persists one JSON file per saved session. Each file is a complete,
// independently loadable array of {speaker, text, timestamp} records; there
// is no schema version and no cross-file linkage.
type Store struct {
	logger *logger.LogMiddleware
	dir    string
}

func Connect(args StoreConnectProps) (*Store, error) {
	if args.Dir == "" {
		args.Dir = "recordings"
	}
	if err := os.MkdirAll(args.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create recordings dir: %w", err)
	}
	return &Store{logger: args.Logger, dir: args.Dir}, nil
}

// Save writes an immutable snapshot of the session and returns the file name.
func (s *Store) Save(ctx context.Context, session *conversation.Session) (string, error) {
	tracer := otel.Tracer("sessionstore/Save")
	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not generate snapshot suffix: %w", err)
	}

	name := fmt.Sprintf("session_%s_%s.json",
		time.Now().UTC().Format("20060102T150405"),
		hex.EncodeToString(suffix),
	)

	data, err := json.MarshalIndent(session.Snapshot(), "", "  ")
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not marshal session snapshot: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not write session snapshot: %w", err)
	}

	span.SetAttributes(
		attribute.String("snapshot.name", name),
		attribute.Int("snapshot.turns", session.Len()),
	)
	s.logger.Logger(ctx).Info("[SessionStore] Saved session snapshot",
		zap.String("name", name),
		zap.Int("turns", session.Len()),
	)

	return name, nil
}

// List returns saved snapshot names, newest first, capped for the admin view.
// The timestamp prefix in the name makes lexical order chronological.
func (s *Store) List(ctx context.Context) ([]string, error) {
	tracer := otel.Tracer("sessionstore/List")
	_, span := tracer.Start(ctx, "List")
	defer span.End()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read recordings dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	if len(names) > maxListed {
		names = names[:maxListed]
	}

	span.SetAttributes(attribute.Int("snapshot.count", len(names)))
	return names, nil
}

// Load reads one snapshot back as its turn records.
func (s *Store) Load(ctx context.Context, name string) ([]conversation.Turn, error) {
	tracer := otel.Tracer("sessionstore/Load")
	_, span := tracer.Start(ctx, "Load")
	defer span.End()

	if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		return nil, fmt.Errorf("invalid snapshot name: %q", name)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read snapshot: %w", err)
	}

	var turns []conversation.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not parse snapshot: %w", err)
	}

	return turns, nil
}
