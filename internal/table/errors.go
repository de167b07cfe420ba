package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Sentinels for errors.Is; the typed errors below match them.
var (
	ErrColumnNotFound = errors.New("column not found")
	ErrEmptyTable     = errors.New("empty table")
	ErrTypeMismatch   = errors.New("type mismatch")
)

// ColumnNotFoundError reports a column name absent from a table.
type ColumnNotFoundError struct {
	Name string
	// Suggestion is the closest existing column name, if any is close enough.
	Suggestion string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("column %q not found (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("column %q not found", e.Name)
}

func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrColumnNotFound }

// EmptyTableError reports an operation that needs at least one row.
type EmptyTableError struct {
	Op string
}

func (e *EmptyTableError) Error() string {
	if e.Op == "" {
		return "table has no rows"
	}
	return fmt.Sprintf("%s: table has no rows", e.Op)
}

func (e *EmptyTableError) Is(target error) bool { return target == ErrEmptyTable }

// TypeMismatchError reports a value or column whose kind does not fit the operation.
type TypeMismatchError struct {
	Column string
	Want   Kind
	Got    string
	// Row is the offending row index, or -1 when the whole column is at fault.
	Row int
}

func (e *TypeMismatchError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("column %q row %d: want %s, got %s", e.Column, e.Row, e.Want, e.Got)
	}
	return fmt.Sprintf("column %q: want %s, got %s", e.Column, e.Want, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// DuplicateColumnError reports a column name used twice in one table.
type DuplicateColumnError struct{ Name string }

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column name %q", e.Name)
}

// LengthMismatchError reports a column whose length differs from the table's row count.
type LengthMismatchError struct {
	Column    string
	Want, Got int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("column %q has %d rows, want %d", e.Column, e.Got, e.Want)
}

// NewTypeMismatch builds a column-level TypeMismatchError.
func NewTypeMismatch(column string, want Kind, got Kind) *TypeMismatchError {
	return &TypeMismatchError{Column: column, Want: want, Got: got.String(), Row: -1}
}

func notFound(names []string, name string) *ColumnNotFoundError {
	return &ColumnNotFoundError{Name: name, Suggestion: Suggest(names, name)}
}

// Suggest returns the candidate closest to name, or "" when nothing is close.
// A case-insensitive match always wins.
func Suggest(candidates []string, name string) string {
	for _, c := range candidates {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	best, bestDist := "", -1
	limit := len([]rune(name)) / 3
	if limit < 2 {
		limit = 2
	}
	for _, c := range candidates {
		d := levenshtein.DistanceForStrings([]rune(strings.ToLower(name)), []rune(strings.ToLower(c)), levenshtein.DefaultOptions)
		if d > limit {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
