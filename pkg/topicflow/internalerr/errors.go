package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// ConfigError reports a constraint violated while constructing a component.
// It is always returned eagerly, never in the middle of a run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Configf builds a ConfigError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Identifier is implemented by items that can name themselves in diagnostics.
type Identifier interface {
	ID() string
}

// StageError is a failure of one stage on one item.
type StageError struct {
	Stage string
	Item  any
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: item %s: %v", e.Stage, describe(e.Item), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StorageError is a failure to open, read, decode or append a persisted file.
// Line is the 1-based line number for decode failures, zero otherwise.
type StorageError struct {
	Op   string
	Path string
	Line int
	Err  error
}

func (e *StorageError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s %s: line %d: %v", e.Op, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

// IsStage reports whether err carries a StageError.
func IsStage(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

// Skippable reports whether err is a per-item failure a run may skip past.
// A StorageError is never skippable, even when a stage reports it.
func Skippable(err error) bool {
	var st *StorageError
	return IsStage(err) && !errors.As(err, &st)
}

func describe(item any) string {
	switch v := item.(type) {
	case nil:
		return "<nil>"
	case Identifier:
		return fmt.Sprintf("%q", v.ID())
	case string:
		return fmt.Sprintf("%q", v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%T", item)
	}
}
