package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/topicflow/pkg/topicflow/dictionary"
	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
)

func openBow(t *testing.T, path string) *Store[[]dictionary.Pair] {
	t.Helper()
	s, err := Open[[]dictionary.Pair](path, split.Training, split.DefaultSchema())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lda-corpus.dat")
	s := openBow(t, path)

	records := []Record[[]dictionary.Pair]{
		{Label: split.Training, Text: [][]dictionary.Pair{{{ID: 0, Count: 2}}, {{ID: 1, Count: 1}}}},
		{Label: split.Validation, Text: [][]dictionary.Pair{{{ID: 2, Count: 1}}}},
		{Label: split.Training, Text: [][]dictionary.Pair{}},
		{Label: split.Testing, Text: [][]dictionary.Pair{{}}},
	}
	for _, rec := range records {
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	var got []Record[[]dictionary.Pair]
	for rec, err := range s.All(ctx) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, rec)
	}
	if !reflect.DeepEqual(got, records) {
		t.Errorf("All = %+v\nwant %+v", got, records)
	}

	rows, err := s.Rows()
	if err != nil || rows != 4 {
		t.Errorf("Rows = %d, %v", rows, err)
	}
	docs, err := s.Documents()
	if err != nil || docs != 2 {
		t.Errorf("Documents = %d, %v", docs, err)
	}
}

func TestLineFormat(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tf-idf-corpus.dat")
	s, err := Open[string](path, split.Unset, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.Append(ctx, Record[string]{Label: split.Unset, Text: []string{"market risk"}})
	s.Append(ctx, Record[string]{Label: split.Training})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"label":null,"text":["market risk"]}` + "\n" + `{"label":"training","text":[]}` + "\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestCountsIncrementAfterScan(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.dat")
	s := openBow(t, path)

	s.Append(ctx, Record[[]dictionary.Pair]{Label: split.Training})
	if n, _ := s.Rows(); n != 1 {
		t.Fatalf("Rows = %d", n)
	}

	// Once counted, appends update the cache. Lines written behind the
	// store's back are not seen, which shows no rescan happens.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"label":"training","text":[]}` + "\n")
	f.Close()

	s.Append(ctx, Record[[]dictionary.Pair]{Label: split.Training})
	s.Append(ctx, Record[[]dictionary.Pair]{Label: split.Testing})
	rows, _ := s.Rows()
	docs, _ := s.Documents()
	if rows != 3 || docs != 2 {
		t.Errorf("rows=%d docs=%d, want 3 and 2", rows, docs)
	}
}

func TestReopenCountsMatchWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.dat")

	w := openBow(t, path)
	w.Rows() // force the scan so the writer maintains counts incrementally
	labels := []split.Label{split.Training, split.Testing, split.Training, split.Validation, split.Training}
	for _, l := range labels {
		if err := w.Append(ctx, Record[[]dictionary.Pair]{Label: l}); err != nil {
			t.Fatal(err)
		}
	}
	wantRows, _ := w.Rows()
	wantDocs, _ := w.Documents()
	w.Close()

	r := openBow(t, path)
	rows, err := r.Rows()
	if err != nil {
		t.Fatal(err)
	}
	docs, _ := r.Documents()
	if rows != wantRows || docs != wantDocs {
		t.Errorf("reopened rows=%d docs=%d, writer had %d and %d", rows, docs, wantRows, wantDocs)
	}
	if rows != 5 || docs != 3 {
		t.Errorf("rows=%d docs=%d", rows, docs)
	}
}

func TestReopenAppends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.dat")

	first := openBow(t, path)
	first.Append(ctx, Record[[]dictionary.Pair]{Label: split.Training})
	first.Close()

	second := openBow(t, path)
	second.Append(ctx, Record[[]dictionary.Pair]{Label: split.Training})
	if n, _ := second.Rows(); n != 2 {
		t.Errorf("reopening should append, got %d rows", n)
	}
}

func TestEmptyFile(t *testing.T) {
	s := openBow(t, filepath.Join(t.TempDir(), "empty.dat"))
	for range s.All(context.Background()) {
		t.Fatal("empty corpus yielded a record")
	}
	rows, err := s.Rows()
	if err != nil || rows != 0 {
		t.Errorf("Rows = %d, %v", rows, err)
	}
}

func TestMalformedLineIsSticky(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	content := `{"label":"training","text":[]}` + "\n" + `{"label":` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := openBow(t, path)

	_, err := s.Rows()
	var se *internalerr.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if se.Line != 2 || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should point at line 2: %v", err)
	}
	if _, again := s.Documents(); again != err {
		t.Errorf("scan error should be sticky, got %v", again)
	}
}

func TestIncompleteTrailingLineIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.dat")
	content := `{"label":"training","text":[]}` + "\n" + `{"label":"tra`
	os.WriteFile(path, []byte(content), 0o644)
	s := openBow(t, path)
	if n, err := s.Rows(); err != nil || n != 1 {
		t.Errorf("Rows = %d, %v", n, err)
	}
}

func TestAppendAfterTornLine(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		content   string
		wantRows  int
		wantFirst string
	}{
		{"after complete line", `{"label":"training","text":["a"]}` + "\n" + `{"label":"tra`, 2, `{"label":"training","text":["a"]}`},
		{"fragment only", `{"label":"tra`, 1, `{"label":"training","text":["b"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.dat")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			s, err := Open[string](path, split.Training, split.DefaultSchema())
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Append(ctx, Record[string]{Label: split.Training, Text: []string{"b"}}); err != nil {
				t.Fatal(err)
			}
			rows, err := s.Rows()
			if err != nil || rows != tt.wantRows {
				t.Errorf("writer Rows = %d, %v", rows, err)
			}
			s.Close()

			reopened, err := Open[string](path, split.Training, split.DefaultSchema())
			if err != nil {
				t.Fatal(err)
			}
			defer reopened.Close()
			rows, err = reopened.Rows()
			if err != nil || rows != tt.wantRows {
				t.Errorf("reopened Rows = %d, %v", rows, err)
			}
			docs, err := reopened.Documents()
			if err != nil || docs != tt.wantRows {
				t.Errorf("reopened Documents = %d, %v", docs, err)
			}

			data, _ := os.ReadFile(path)
			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			if lines[0] != tt.wantFirst || lines[len(lines)-1] != `{"label":"training","text":["b"]}` {
				t.Errorf("file = %q", data)
			}
		})
	}
}

func TestOpenKeepsCompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dat")
	content := `{"label":"training","text":["a"]}` + "\n"
	os.WriteFile(path, []byte(content), 0o644)
	s := openBow(t, path)
	s.Close()
	if data, _ := os.ReadFile(path); string(data) != content {
		t.Errorf("complete file changed on open: %q", data)
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open[string](filepath.Join(t.TempDir(), "c.dat"), split.Label("holdout"), split.DefaultSchema())
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("unknown partition: expected config error, got %v", err)
	}

	_, err = Open[string](filepath.Join(t.TempDir(), "missing", "c.dat"), split.Training, split.DefaultSchema())
	var se *internalerr.StorageError
	if !errors.As(err, &se) || se.Op != "open" {
		t.Errorf("missing directory: expected StorageError, got %v", err)
	}
}

func TestProcessAndSentences(t *testing.T) {
	ctx := context.Background()
	s, err := Open[string](filepath.Join(t.TempDir(), "c.dat"), split.Training, split.DefaultSchema())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	docs := []ingest.Document[[]string]{
		{Label: split.Training, Path: "a.txt", Text: []string{"market risk", "rate"}},
		{Label: split.Testing, Path: "b.txt", Text: []string{"other"}},
		{Label: split.Training, Path: "c.txt", Text: nil},
		{Label: split.Training, Path: "d.txt", Text: []string{"policy"}},
	}
	for _, d := range docs {
		if err := s.Process(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for sentence, err := range s.Sentences(ctx) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, sentence)
	}
	if want := []string{"market risk", "rate", "policy"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences = %q, want %q", got, want)
	}
	if n, _ := s.Documents(); n != 3 {
		t.Errorf("empty document should still be counted, Documents = %d", n)
	}
}

func TestAppendAfterClose(t *testing.T) {
	s := openBow(t, filepath.Join(t.TempDir(), "c.dat"))
	s.Close()
	err := s.Append(context.Background(), Record[[]dictionary.Pair]{})
	if !errors.Is(err, os.ErrClosed) || !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("expected closed storage error, got %v", err)
	}
}
