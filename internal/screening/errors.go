package screening

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrScreeningNotFound = errors.New("screening not found")
	// ErrPatientNotFound covers both unknown patients and patients owned by someone else.
	ErrPatientNotFound = errors.New("patient not found")
)

// ValidationError carries per-field messages for a rejected upload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid screening: " + strings.Join(parts, "; ")
}

// PersistenceError means the image or the row could not be stored. No
// screening row exists afterwards.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting screening (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
