// Package dataset writes raw documents to a JSON array file for annotation
// tools. The file is valid JSON after every append.
package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
)

const (
	emptyArray = "[\n]"
	closing    = "\n]"
)

// Record is one dataset entry.
type Record struct {
	Label split.Label `json:"label"`
	Path  string      `json:"path"`
	Text  string      `json:"text"`
}

// Writer inserts records before the closing bracket of a JSON array file.
// Only one Writer may hold a path at a time.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
	size int64
}

// Create opens path, starting a new empty array if the file does not exist.
// An existing file must end with the closing bracket this package writes.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &internalerr.StorageError{Op: "open", Path: path, Err: err}
	}
	w := &Writer{path: path, f: f}
	if err := w.init(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) init() error {
	info, err := w.f.Stat()
	if err != nil {
		return &internalerr.StorageError{Op: "stat", Path: w.path, Err: err}
	}
	if info.Size() == 0 {
		if _, err := w.f.WriteAt([]byte(emptyArray), 0); err != nil {
			return &internalerr.StorageError{Op: "create", Path: w.path, Err: err}
		}
		w.size = int64(len(emptyArray))
		return nil
	}

	tail := make([]byte, len(closing))
	if info.Size() < int64(len(emptyArray)) {
		return &internalerr.StorageError{Op: "open", Path: w.path, Err: fmt.Errorf("%w: not a dataset array", internalerr.ErrInvalidInput)}
	}
	if _, err := w.f.ReadAt(tail, info.Size()-int64(len(closing))); err != nil {
		return &internalerr.StorageError{Op: "read", Path: w.path, Err: err}
	}
	if !bytes.Equal(tail, []byte(closing)) {
		return &internalerr.StorageError{Op: "open", Path: w.path, Err: fmt.Errorf("%w: file does not end with %q", internalerr.ErrInvalidInput, closing)}
	}
	w.size = info.Size()
	return nil
}

// Append inserts rec as the last array element.
func (w *Writer) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return &internalerr.StorageError{Op: "encode", Path: w.path, Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return &internalerr.StorageError{Op: "append", Path: w.path, Err: os.ErrClosed}
	}

	prefix := ",\n"
	if w.size == int64(len(emptyArray)) {
		prefix = "\n"
	}
	buf := make([]byte, 0, len(prefix)+len(data)+len(closing))
	buf = append(buf, prefix...)
	buf = append(buf, data...)
	buf = append(buf, closing...)

	// Overwrite the closing bracket and put it back after the record.
	at := w.size - int64(len(closing))
	if _, err := w.f.WriteAt(buf, at); err != nil {
		return &internalerr.StorageError{Op: "append", Path: w.path, Err: err}
	}
	w.size = at + int64(len(buf))
	return nil
}

// Process appends a raw document, making Writer a terminal sink.
func (w *Writer) Process(ctx context.Context, doc ingest.Document[string]) error {
	return w.Append(ctx, Record{Label: doc.Label, Path: doc.Path, Text: doc.Text})
}

// Close closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	if err != nil {
		return &internalerr.StorageError{Op: "close", Path: w.path, Err: err}
	}
	return nil
}
