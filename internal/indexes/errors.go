package indexes

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks against the typed errors below.
var (
	ErrConnection          = errors.New("indexes: database unreachable or unauthenticated")
	ErrConstraintViolation = errors.New("indexes: existing data violates unique index")
	ErrNameConflict        = errors.New("indexes: index name in use with a different definition")
	ErrKeyConflict         = errors.New("indexes: key pattern already indexed under another name")
	ErrMissing             = errors.New("indexes: index missing")
)

// ConnectionError means the database could not be reached or rejected the
// credentials. It aborts the whole run.
type ConnectionError struct {
	Op         string
	Collection string
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("connection error during %s on %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error        { return e.Err }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ConstraintViolationError means a unique index could not be built because
// documents already share a key. Duplicates holds sample offending groups.
type ConstraintViolationError struct {
	Spec       Spec
	Duplicates []Duplicate
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unique index %s on %s cannot be built: duplicate %s values",
		e.Spec.Name, e.Spec.Collection, strings.Join(e.Spec.Fields(), ", "))
	if len(e.Duplicates) > 0 {
		samples := make([]string, len(e.Duplicates))
		for i, d := range e.Duplicates {
			samples[i] = d.String()
		}
		fmt.Fprintf(&b, " (e.g. %s)", strings.Join(samples, "; "))
	}
	return b.String()
}

func (e *ConstraintViolationError) Unwrap() error        { return e.Err }
func (e *ConstraintViolationError) Is(target error) bool { return target == ErrConstraintViolation }

// NameConflictError means an index with the wanted name exists but its
// definition differs. It is left untouched.
type NameConflictError struct {
	Spec     Spec
	Existing IndexInfo
}

func (e *NameConflictError) Error() string {
	existing := e.Existing.KeyPattern() + uniqueSuffix(e.Existing.Unique)
	if opts := e.Existing.ExtraOptions(); len(opts) > 0 {
		existing += " [" + strings.Join(opts, ", ") + "]"
	}
	return fmt.Sprintf("index %s on %s exists as %s, want %s%s",
		e.Spec.Name, e.Spec.Collection, existing,
		e.Spec.KeyPattern(), uniqueSuffix(e.Spec.Unique))
}

func (e *NameConflictError) Is(target error) bool { return target == ErrNameConflict }

// KeyConflictError means the wanted key pattern is already indexed under a
// different name.
type KeyConflictError struct {
	Spec     Spec
	Existing IndexInfo
}

func (e *KeyConflictError) Error() string {
	return fmt.Sprintf("index %s on %s: key pattern %s already indexed as %s",
		e.Spec.Name, e.Spec.Collection, e.Spec.KeyPattern(), e.Existing.Name)
}

func (e *KeyConflictError) Is(target error) bool { return target == ErrKeyConflict }

// MissingError is reported by Verify for an index that does not exist.
type MissingError struct {
	Spec Spec
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("index %s on %s is missing", e.Spec.Name, e.Spec.Collection)
}

func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// IndexError wraps any other failure with the collection and index named.
type IndexError struct {
	Spec Spec
	Op   string
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s index %s on %s: %v", e.Op, e.Spec.Name, e.Spec.Collection, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

func uniqueSuffix(u bool) string {
	if u {
		return " unique"
	}
	return ""
}
