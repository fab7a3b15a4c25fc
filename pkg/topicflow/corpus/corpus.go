// Package corpus is an append-only, line-delimited store of processed
// documents. Each line is one JSON record {"label": ..., "text": [...]}.
//
// Row and document counts are computed by one full scan on first access and
// then kept current by Append without rescanning. The counts assume this
// Store is the only writer to the file; changes made by another process after
// the scan are not detected.
package corpus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/split"
)

// Record is one corpus line. Text holds the document's sentences in
// whatever shape the corpus was built with: bags of words or joined strings.
type Record[E any] struct {
	Label split.Label `json:"label"`
	Text  []E         `json:"text"`
}

// Store appends records to one corpus file. Concurrent writers to the same
// path are not supported.
type Store[E any] struct {
	path      string
	partition split.Label

	mu sync.Mutex
	f  *os.File

	once    sync.Once
	scanned bool
	scanErr error
	rows    int
	docs    int
}

// Open opens path for appending, creating it if needed. partition names the
// label Documents counts; it must be a partition of schema unless it is
// split.Unset.
//
// A trailing line without a newline is the remains of an interrupted append
// and is cut off before anything new is written.
func Open[E any](path string, partition split.Label, schema split.Schema) (*Store[E], error) {
	if err := schema.Require(partition); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &internalerr.StorageError{Op: "open", Path: path, Err: err}
	}
	if err := truncateTornLine(f); err != nil {
		f.Close()
		return nil, &internalerr.StorageError{Op: "repair", Path: path, Err: err}
	}
	return &Store[E]{path: path, partition: partition, f: f}, nil
}

// truncateTornLine shrinks f to end just after its last newline.
func truncateTornLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	end := info.Size()
	if end == 0 {
		return nil
	}

	buf := make([]byte, 4096)
	last := int64(-1)
	for off := end; off > 0 && last < 0; {
		n := int64(len(buf))
		if off < n {
			n = off
		}
		off -= n
		if _, err := f.ReadAt(buf[:n], off); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if off+n == end && buf[n-1] == '\n' {
			return nil
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			last = off + int64(i)
		}
	}
	return f.Truncate(last + 1)
}

// Path returns the corpus file path.
func (s *Store[E]) Path() string { return s.path }

// Label returns the partition counted by Documents.
func (s *Store[E]) Label() split.Label { return s.partition }

// Append writes rec as one line with a single write.
func (s *Store[E]) Append(ctx context.Context, rec Record[E]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Text == nil {
		rec.Text = []E{}
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return &internalerr.StorageError{Op: "encode", Path: s.path, Err: err}
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return &internalerr.StorageError{Op: "append", Path: s.path, Err: os.ErrClosed}
	}
	if _, err := s.f.Write(line); err != nil {
		return &internalerr.StorageError{Op: "append", Path: s.path, Err: err}
	}
	if s.scanned {
		s.rows++
		if rec.Label == s.partition {
			s.docs++
		}
	}
	return nil
}

// Process appends a pipeline document, making Store a terminal sink.
func (s *Store[E]) Process(ctx context.Context, doc ingest.Document[[]E]) error {
	return s.Append(ctx, Record[E]{Label: doc.Label, Text: doc.Text})
}

// Rows returns the number of records in the file.
func (s *Store[E]) Rows() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.count(); err != nil {
		return 0, err
	}
	return s.rows, nil
}

// Documents returns the number of records labelled with the store's partition.
func (s *Store[E]) Documents() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.count(); err != nil {
		return 0, err
	}
	return s.docs, nil
}

// count runs the initial scan once. A scan failure is kept and returned on
// every later call. Caller holds s.mu.
func (s *Store[E]) count() error {
	s.once.Do(func() {
		rows, docs := 0, 0
		for rec, err := range s.All(context.Background()) {
			if err != nil {
				s.scanErr = err
				return
			}
			rows++
			if rec.Label == s.partition {
				docs++
			}
		}
		s.rows, s.docs, s.scanned = rows, docs, true
	})
	return s.scanErr
}

// All streams every complete record in append order through a fresh read
// handle. A trailing line without its newline is still being written and is
// not yielded. The sequence stops at the first error.
func (s *Store[E]) All(ctx context.Context) iter.Seq2[Record[E], error] {
	return func(yield func(Record[E], error) bool) {
		var zero Record[E]
		f, err := os.Open(s.path)
		if err != nil {
			yield(zero, &internalerr.StorageError{Op: "read", Path: s.path, Err: err})
			return
		}
		defer f.Close()

		r := bufio.NewReader(f)
		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			line, err := r.ReadBytes('\n')
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(zero, &internalerr.StorageError{Op: "read", Path: s.path, Line: n, Err: err})
				return
			}
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var rec Record[E]
			if err := json.Unmarshal(line, &rec); err != nil {
				yield(zero, &internalerr.StorageError{Op: "decode", Path: s.path, Line: n, Err: err})
				return
			}
			if rec.Text == nil {
				rec.Text = []E{}
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Sentences streams the text elements of every record in the store's
// partition. This is the stream a model trains on.
func (s *Store[E]) Sentences(ctx context.Context) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		for rec, err := range s.All(ctx) {
			if err != nil {
				var zero E
				yield(zero, err)
				return
			}
			if rec.Label != s.partition {
				continue
			}
			for _, e := range rec.Text {
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

// Close closes the append handle. It is safe to call more than once.
func (s *Store[E]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return &internalerr.StorageError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}
