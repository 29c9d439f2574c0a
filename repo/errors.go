package repo

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for caller sequencing mistakes.
var (
	ErrNotInitialized     = errors.New("repository not initialized")
	ErrAlreadyInitialized = errors.New("repository already initialized")
)

// NotFoundError reports a missing credential.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("credential not found: %s", e.ID)
}

// ValidationError reports a record that failed the data-model rules. The
// reasons are human-readable and complete: nothing was applied.
type ValidationError struct {
	Reasons []string
}

func (e ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// DuplicateIDError reports an add whose id collides with an existing
// credential.
type DuplicateIDError struct {
	ID string
}

func (e DuplicateIDError) Error() string {
	return fmt.Sprintf("credential with id %q already exists", e.ID)
}

// StructureError reports a malformed file map: missing metadata, or a
// credential count that disagrees with the records actually present.
type StructureError struct {
	Message string
}

func (e StructureError) Error() string {
	return "structure error: " + e.Message
}

// SerializationError wraps a YAML failure at the file-map boundary.
type SerializationError struct {
	Err error
}

func (e SerializationError) Error() string {
	return "serialization error: " + e.Err.Error()
}

func (e SerializationError) Unwrap() error { return e.Err }
