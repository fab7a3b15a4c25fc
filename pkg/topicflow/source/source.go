// Package source produces the raw inputs a pipeline head pulls from.
package source

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"
)

// Item is one raw input together with its ordinal position in the source.
// Pos is what the splitter derives a partition from, so it must be stable
// for an unchanged input set.
type Item struct {
	Pos  int
	Path string
}

// ID identifies the item in diagnostics.
func (i Item) ID() string { return i.Path }

// Source yields items one at a time in a stable order. Calling Items again
// restarts the sequence from the beginning.
type Source interface {
	Items(ctx context.Context) iter.Seq2[Item, error]
}

// Dir walks a directory tree lazily in lexical order.
type Dir struct {
	Root       string
	Extensions []string // matched case-insensitively; empty means ".txt"
}

// NewDir creates a directory source.
func NewDir(root string, extensions ...string) *Dir {
	return &Dir{Root: root, Extensions: extensions}
}

// Items walks Root. Walk errors are yielded and end the sequence.
func (d *Dir) Items(ctx context.Context) iter.Seq2[Item, error] {
	exts := d.Extensions
	if len(exts) == 0 {
		exts = []string{".txt"}
	}
	return func(yield func(Item, error) bool) {
		pos := 0
		stopped := false
		err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if entry.IsDir() || !hasExtension(path, exts) {
				return nil
			}
			if !yield(Item{Pos: pos, Path: path}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			pos++
			return nil
		})
		if err != nil && !stopped {
			yield(Item{Pos: pos}, err)
		}
	}
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Paths is a fixed list of inputs, yielded in the order given.
type Paths []string

// Items yields each path.
func (p Paths) Items(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for i, path := range p {
			if err := ctx.Err(); err != nil {
				yield(Item{Pos: i}, err)
				return
			}
			if !yield(Item{Pos: i, Path: path}, nil) {
				return
			}
		}
	}
}

// Count runs a separate pass over src and returns the number of items.
func Count(ctx context.Context, src Source) (int, error) {
	n := 0
	for _, err := range src.Items(ctx) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Throttle paces src so that items are emitted no faster than limiter allows.
func Throttle(src Source, limiter *rate.Limiter) Source {
	return throttled{src: src, limiter: limiter}
}

type throttled struct {
	src     Source
	limiter *rate.Limiter
}

func (t throttled) Items(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for item, err := range t.src.Items(ctx) {
			if err == nil {
				err = t.limiter.Wait(ctx)
			}
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}
