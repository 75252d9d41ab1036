package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hbbio/nanoagent/pkg/agent"
	"github.com/hbbio/nanoagent/pkg/adapters/model/script"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dsn := "sqlite:file:" + filepath.Join(t.TempDir(), "runs.sqlite")
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestSaveAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	for _, rec := range []Record{
		{RunID: "run-1", StateID: "a", State: []byte(`{"step":1}`)},
		{RunID: "run-1", StateID: "b", Halt: "done", State: []byte(`{"step":2}`)},
		{RunID: "run-2", StateID: "c", State: []byte(`{"step":1}`)},
	} {
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	latest, err := s.LoadLatest(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if latest.StateID != "b" || latest.Halt != "done" {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	all, err := s.List(ctx, "run-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].StateID != "a" || all[1].StateID != "b" {
		t.Fatalf("unexpected list: %+v", all)
	}
}

func TestLoadLatestMissing(t *testing.T) {
	s := openSQLite(t)
	if _, err := s.LoadLatest(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSaveRejectsEmptyRunID(t *testing.T) {
	s := openSQLite(t)
	if err := s.Save(context.Background(), Record{State: []byte(`{}`)}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	model := script.New[agent.MapMemory]()
	st := agent.NewState(model,
		[]agent.Message{{Role: agent.RoleUser, Content: "hello"}},
		agent.MapMemory{"topic": "storage"})
	st = st.WithHalt(agent.AwaitInput())

	if err := SaveState(ctx, s, "run-rt", st); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	got, err := LoadState(ctx, s, "run-rt", model)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got.ID != st.ID {
		t.Fatalf("state id mismatch: %q vs %q", got.ID, st.ID)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Memory["topic"] != "storage" {
		t.Fatalf("unexpected memory: %+v", got.Memory)
	}
	if got.Halted == nil || got.Halted.Kind != agent.HaltAwaitingInput {
		t.Fatalf("unexpected halt: %+v", got.Halted)
	}
	if got.Model == nil {
		t.Fatal("model not reattached")
	}
}
