package internalerr

import (
	"errors"
	"io"
	"strings"
	"testing"
)

type namedItem string

func (n namedItem) ID() string { return string(n) }

func TestConfigErrorUnwrapsSentinel(t *testing.T) {
	err := Configf("split.schema", "fractions sum to %.2f", 0.9)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "split.schema") {
		t.Errorf("message should name the field: %q", err.Error())
	}
}

func TestStageErrorIdentifiesItem(t *testing.T) {
	err := error(&StageError{Stage: "read", Item: namedItem("docs/a.txt"), Err: io.ErrUnexpectedEOF})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatal("StageError should unwrap to its cause")
	}
	if !IsStage(err) {
		t.Fatal("IsStage should detect StageError")
	}
	msg := err.Error()
	for _, want := range []string{"read", "docs/a.txt"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestStorageErrorMatchesBothSentinelAndCause(t *testing.T) {
	err := error(&StorageError{Op: "scan", Path: "corpus.dat", Line: 3, Err: io.ErrUnexpectedEOF})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Error("expected ErrStoreUnavailable")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be reachable")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("message should carry line number: %q", err.Error())
	}
	if IsStage(err) {
		t.Error("storage error must not look like a stage error")
	}
}

func TestSkippable(t *testing.T) {
	storage := &StorageError{Op: "append", Path: "corpus.dat", Err: io.ErrShortWrite}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"stage failure", &StageError{Stage: "read", Err: io.EOF}, true},
		{"storage inside stage", &StageError{Stage: "words", Err: storage}, false},
		{"bare storage", storage, false},
		{"plain", io.EOF, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Skippable(tt.err); got != tt.want {
				t.Errorf("Skippable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
