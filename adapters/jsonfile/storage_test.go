package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := store.CreateProgression(ctx, "alice"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = store.RunTransaction(ctx, "alice", func(p core.UserProgression) (core.UserProgression, error) {
		p.TotalPoints = 1200
		p.Level = 2
		p.CurrentStreak = 4
		p.Badges[core.BadgeID("first_workout")] = time.Now().UTC()
		return p, nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if _, err := store.AppendHistory(ctx, "alice", core.XPHistoryEntry{Source: "activity", Amount: 100}); err != nil {
		t.Fatalf("append history: %v", err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	// reload
	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	doc, err := reloaded.GetProgression(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.TotalPoints != 1200 || doc.Level != 2 || doc.CurrentStreak != 4 {
		t.Fatalf("reloaded doc wrong: %+v", doc)
	}
	if _, ok := doc.Badges[core.BadgeID("first_workout")]; !ok {
		t.Fatal("expected badge first_workout after reload")
	}
	log, err := reloaded.History(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(log) != 1 || log[0].Amount != 100 {
		t.Fatalf("reloaded history wrong: %+v", log)
	}
}

func TestMissingUser(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetProgression(context.Background(), "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFailedTransactionRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	store.CreateProgression(ctx, "alice")
	boom := errors.New("boom")
	if _, err := store.RunTransaction(ctx, "alice", func(p core.UserProgression) (core.UserProgression, error) {
		p.TotalPoints = 99
		return p, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("want fn error, got %v", err)
	}
	reloaded, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := reloaded.GetProgression(ctx, "alice")
	if doc.TotalPoints != 0 {
		t.Fatalf("aborted transaction reached disk: %+v", doc)
	}
}

func TestHistoryLimit(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, src := range []string{"a", "b", "c"} {
		store.AppendHistory(ctx, "alice", core.XPHistoryEntry{Source: src})
	}
	log, err := store.History(ctx, "alice", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 || log[0].Source != "c" || log[1].Source != "b" {
		t.Fatalf("want newest first [c b], got %+v", log)
	}
}
