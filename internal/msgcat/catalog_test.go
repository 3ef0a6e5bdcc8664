package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessagesRender(t *testing.T) {
	c := Default()
	got, err := c.Render("move.bot", map[string]any{"SAN": "e5"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Bot plays e5." {
		t.Fatalf("got %q", got)
	}

	got, err = c.Render("estimate.line", map[string]any{"ACPL": 25.0, "Rating": 2800, "Depth": 7, "Band": "Super GM"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "ACPL 25.0 -> rating 2800, bot depth 7 (Super GM)" {
		t.Fatalf("got %q", got)
	}
}

func TestMissingDataIsAnError(t *testing.T) {
	c := Default()
	if _, err := c.Render("move.bot", map[string]any{}); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatal("expected unknown template error")
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("Text fallback = %q", got)
	}
}

func TestOverridesReplaceEmbeddedText(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "10-moves.yaml"), []byte("move:\n  bot: \"Engine: {{.SAN}}\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("move.bot", map[string]any{"SAN": "Nf6"}); got != "Engine: Nf6" {
		t.Fatalf("got %q", got)
	}
	if !c.Has("hint.line") {
		t.Fatal("embedded keys lost after override")
	}
}

func TestDuplicateOverrideKeysRejected(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("hint:\n  line: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("move:\n  bot: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatal("expected type error")
	}
}
