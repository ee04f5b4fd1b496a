package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.Save(context.Background(), "imports/b1_list.txt", strings.NewReader("1\tA")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := store.Open(context.Background(), "imports/b1_list.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	raw, _ := io.ReadAll(rc)
	if string(raw) != "1\tA" {
		t.Fatalf("unexpected contents %q", raw)
	}
}

func TestSaveKeepsKeysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "store"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.Save(context.Background(), "../../escape.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "store", "escape.txt")); err != nil {
		t.Fatalf("expected file inside base dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err == nil {
		t.Fatalf("key escaped the base dir")
	}
}
