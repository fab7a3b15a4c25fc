package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestNewFileIsEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if got := readFile(t, path); got != "[\n]" {
		t.Errorf("file = %q", got)
	}
}

func TestAppendLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dataset.json")
	w, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(ctx, Record{Label: split.Training, Path: "a.txt", Text: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Process(ctx, ingest.Document[string]{Path: "b.txt", Text: "two\nlines"}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	want := "[\n" +
		`{"label":"training","path":"a.txt","text":"one"}` + ",\n" +
		`{"label":null,"path":"b.txt","text":"two\nlines"}` + "\n]"
	if got := readFile(t, path); got != want {
		t.Errorf("file = %q\nwant   %q", got, want)
	}
}

func TestReopenContinuesArray(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dataset.json")
	for i, text := range []string{"first", "second", "third"} {
		w, err := Create(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := w.Append(ctx, Record{Label: split.Testing, Path: text, Text: text}); err != nil {
			t.Fatal(err)
		}
		w.Close()
	}

	var records []Record
	if err := json.Unmarshal([]byte(readFile(t, path)), &records); err != nil {
		t.Fatalf("file is not valid JSON: %v", err)
	}
	if len(records) != 3 || records[2].Text != "third" || records[0].Label != split.Testing {
		t.Errorf("records = %+v", records)
	}
}

func TestCreateRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.json")
	os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644)
	_, err := Create(path)
	if !errors.Is(err, internalerr.ErrInvalidInput) || !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("expected storage error for foreign file, got %v", err)
	}
}
