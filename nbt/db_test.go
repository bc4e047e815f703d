package nbt

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/anvilkeep/anvilstore/compress"
)

func TestLoadDBGzipped(t *testing.T) {
	payload, err := ComposeTag(buildSampleTree())
	if err != nil {
		t.Fatalf("ComposeTag: %v", err)
	}
	compressed, err := compress.Deflate(payload, false)
	if err != nil {
		t.Fatalf("Deflate: %v", err)
	}

	path := filepath.Join(t.TempDir(), "level.dat")
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := LoadDB(path)
	if err != nil {
		t.Fatalf("LoadDB: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("LoadDB did not return the inflated payload")
	}
}

func TestLoadDBUncompressedPassesThrough(t *testing.T) {
	payload, err := ComposeTag(buildSampleTree())
	if err != nil {
		t.Fatalf("ComposeTag: %v", err)
	}

	path := filepath.Join(t.TempDir(), "level.dat")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := LoadDB(path)
	if err != nil {
		t.Fatalf("LoadDB: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("LoadDB should pass an uncompressed file through unchanged")
	}
}

func TestLoadDBMissingFile(t *testing.T) {
	if _, err := LoadDB(filepath.Join(t.TempDir(), "missing.dat")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
