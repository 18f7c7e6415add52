package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := cat.Render("game.not_your_turn", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Not your turn to play" {
		t.Fatalf("unexpected default: %q", got)
	}
}

func TestOverrideDirectoryWins(t *testing.T) {
	dir := t.TempDir()
	override := "game:\n  not_your_turn: \"Wait for your opponent\"\n"
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cat, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := cat.Render("game.not_your_turn", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Wait for your opponent" {
		t.Fatalf("override not applied: %q", got)
	}
	// Untouched keys keep their defaults.
	if got, _ := cat.Render("game.over", nil); got != "Game is over" {
		t.Fatalf("default lost: %q", got)
	}
}

func TestRenderTemplateData(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := cat.Render("sync.internal", map[string]any{"Error": "boom"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Something went wrong: boom" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	bad := "game:\n  not_your_turn: 42\n"
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected an error for a non-string message value")
	}
}

func TestMustRenderFallsBackToKey(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := cat.MustRender("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}
