package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jgoulah/devusage/internal/database"
)

func TestLoadCommandIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "batch.json")
	doc := `[
		{"deviceID":"71875627","date":"1-Jan-2025","values":[80,82]},
		{"deviceID":"71875627","date":"Jan 2 2025","values":[1]}
	]`
	if err := os.WriteFile(source, []byte(doc), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	db := filepath.Join(dir, "out", "analytics.db")

	for i := 0; i < 2; i++ {
		rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "--db", db, "load", source})
		if err := rootCmd.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	store, err := database.New(db, 1000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestLoadCommandFailsOnMissingSource(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "--db", filepath.Join(dir, "a.db"), "load", filepath.Join(dir, "nope.json")})
	if err := rootCmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for missing source file")
	}
}
