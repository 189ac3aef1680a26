package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyInput        = errors.New("no valid rows parsed")
	ErrInvalidLimit      = errors.New("limit must be a non-negative integer")
	ErrAmbiguousSynonym  = errors.New("synonym already belongs to another mapping")
	ErrExpressionSyntax  = errors.New("expression syntax error")
	ErrNotFound          = errors.New("not found")
	ErrPartialBroadcast  = errors.New("apply to all stores partially failed")
	ErrConflict          = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
)

// BroadcastError reports an apply-to-all operation that reached only some
// stores. Applied stores are not rolled back.
type BroadcastError struct {
	Applied []string
	Failed  map[string]error
}

func (e *BroadcastError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id, err := range e.Failed {
		ids = append(ids, fmt.Sprintf("%s: %v", id, err))
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s: %d applied, %d failed (%s)",
		ErrPartialBroadcast.Error(), len(e.Applied), len(e.Failed), strings.Join(ids, "; "))
}

func (e *BroadcastError) Unwrap() error {
	return ErrPartialBroadcast
}
