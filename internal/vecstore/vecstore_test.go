package vecstore

import (
	"os"
	"path/filepath"
	"testing"

	"tutor-llm/internal/config"
)

func TestNewRefusesDisabledStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromemdb")

	_, err := New(&config.VectorDBConfig{
		Enabled:    false,
		Path:       path,
		Collection: "qa_collection",
	}, nil)
	if err == nil {
		t.Fatal("expected error for disabled vector database")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("disabled store created its persistence directory")
	}
}

func TestNewInMemoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chromemdb")

	vs, err := New(&config.VectorDBConfig{
		Enabled:    true,
		Path:       path,
		Collection: "qa_collection",
		InMemory:   true,
	}, nil)
	if err != nil {
		t.Fatalf("in-memory store init failed: %v", err)
	}
	if vs.collection == nil {
		t.Error("collection not created")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("in-memory store wrote to disk")
	}
}
