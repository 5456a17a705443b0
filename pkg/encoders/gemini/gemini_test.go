package gemini

import (
	"errors"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("New() without key error = %v, want ErrUnavailable", err)
	}
	if _, err := New(Config{APIKey: "   "}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("New() with blank key error = %v, want ErrUnavailable", err)
	}
}

func TestNewDefaults(t *testing.T) {
	encoder, err := New(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if encoder.model != DefaultModel {
		t.Errorf("model = %q, want %q", encoder.model, DefaultModel)
	}
	if encoder.Dim() != DefaultDim {
		t.Errorf("Dim() = %d, want %d", encoder.Dim(), DefaultDim)
	}
}

func TestNewOverrides(t *testing.T) {
	encoder, err := New(Config{
		APIKey:   "test-key",
		Model:    "gemini-embedding-001",
		TaskType: "RETRIEVAL_DOCUMENT",
		Dim:      1536,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if encoder.model != "gemini-embedding-001" {
		t.Errorf("model = %q, want override", encoder.model)
	}
	if encoder.taskType != "RETRIEVAL_DOCUMENT" {
		t.Errorf("taskType = %q, want override", encoder.taskType)
	}
	if encoder.Dim() != 1536 {
		t.Errorf("Dim() = %d, want 1536", encoder.Dim())
	}
}
