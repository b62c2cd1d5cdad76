package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{Path: filepath.Join(t.TempDir(), "nested", "script.db")})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestScriptLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec, err := store.SaveScript(ctx, " hello ", "says hello", `println("hello");`)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.ID == "" || rec.Name != "hello" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := store.SaveScript(ctx, "hello", "", "1"); err == nil {
		t.Fatalf("expected duplicate name to fail")
	}
	if _, err := store.SaveScript(ctx, "  ", "", "1"); !errors.Is(err, ErrScriptName) {
		t.Fatalf("expected name error, got %v", err)
	}

	byID, err := store.GetScript(ctx, rec.ID)
	if err != nil || byID.Source != rec.Source || byID.Description != "says hello" {
		t.Fatalf("get by id: %+v %v", byID, err)
	}
	byName, err := store.GetScript(ctx, "hello")
	if err != nil || byName.ID != rec.ID {
		t.Fatalf("get by name: %+v %v", byName, err)
	}

	rec.Source = `println("bye");`
	rec.Name = "bye"
	updated, err := store.UpdateScript(ctx, rec)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "bye" || updated.Source != rec.Source {
		t.Fatalf("update not applied: %+v", updated)
	}
	if _, err := store.UpdateScript(ctx, ScriptRecord{ID: "missing", Name: "x"}); !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}

	if _, err := store.SaveScript(ctx, "another", "", "2"); err != nil {
		t.Fatalf("save: %v", err)
	}
	list, err := store.ListScripts(ctx)
	if err != nil || len(list) != 2 || list[0].Name != "another" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}

	if err := store.DeleteScript(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetScript(ctx, rec.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.DeleteScript(ctx, rec.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestRunHistory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	script, err := store.SaveScript(ctx, "loop", "", "while (true) {}")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	base := time.Now().UTC().Add(-time.Hour)
	if _, err := store.RecordRun(ctx, RunRecord{
		ScriptID:  script.ID,
		Source:    script.Source,
		Warnings:  []string{"While loop reached its limit (1024), force quitted"},
		Success:   true,
		CreatedAt: base,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	second, err := store.RecordRun(ctx, RunRecord{
		SessionID: "s1",
		Source:    "1/0",
		Error:     "THROWN: / by zero",
		CreatedAt: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if second.ID == "" {
		t.Fatalf("expected generated id")
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second.ID || runs[0].Success || runs[0].SessionID != "s1" {
		t.Fatalf("expected newest failed run first, got %+v", runs[0])
	}
	if runs[1].ScriptName != "loop" || len(runs[1].Warnings) != 1 {
		t.Fatalf("expected script name and warnings, got %+v", runs[1])
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit not applied: %d %v", len(limited), err)
	}

	if err := store.ClearRuns(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if runs, _ := store.ListRuns(ctx, 0); len(runs) != 0 {
		t.Fatalf("expected empty history, got %d", len(runs))
	}
}
