// Package archive moves encrypted repositories between memory and
// storage. A Provider either performs file operations itself (direct,
// for desktop processes) or describes them for the host to perform
// (delegated, for sandboxed callers that own file access).
package archive

import (
	"encoding/json"
	"fmt"

	"coffre/filemap"
)

// Provider abstracts archive I/O. Implementations that cannot perform an
// operation in-process return a result carrying a non-nil Operations
// descriptor instead of data; the caller executes the described
// operations out of band.
type Provider interface {
	// ReadArchive returns the raw encrypted bytes at path.
	ReadArchive(path string) ([]byte, error)

	// WriteArchive stores raw encrypted bytes at path atomically.
	WriteArchive(path string, data []byte) error

	// CreateArchive encrypts a file map into archive bytes, or describes
	// the work for the host.
	CreateArchive(files filemap.FileMap, password string) (CreateResult, error)

	// ExtractArchive decrypts archive bytes into a file map, or
	// describes the work for the host.
	ExtractArchive(data []byte, password string) (ExtractResult, error)
}

// CreateResult is the outcome of CreateArchive. Exactly one of Data and
// Ops is meaningful: Ops non-nil means the host must run the described
// operations and no data was produced.
type CreateResult struct {
	Data []byte
	Ops  *Operations
}

// ExtractResult is the outcome of ExtractArchive, with the same Ops
// convention as CreateResult.
type ExtractResult struct {
	Files filemap.FileMap
	Ops   *Operations
}

// Operation types understood by hosts.
const (
	OpCreateArchive  = "create_archive"
	OpExtractArchive = "extract_archive"

	// OpFormat tags every operation so hosts can dispatch on payload
	// shape without sniffing.
	OpFormat = "archive"
)

// Operation is one unit of work delegated to the host.
type Operation struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	Password string `json:"password"`
	Format   string `json:"format"`
}

// Operations is an ordered batch of delegated work.
type Operations struct {
	Operations []Operation `json:"operations"`
}

// NewCreateOperations describes a create to be run by the host.
func NewCreateOperations(path, password string) *Operations {
	return &Operations{Operations: []Operation{{
		Type:     OpCreateArchive,
		Path:     path,
		Password: password,
		Format:   OpFormat,
	}}}
}

// NewExtractOperations describes an extract to be run by the host.
func NewExtractOperations(path, password string) *Operations {
	return &Operations{Operations: []Operation{{
		Type:     OpExtractArchive,
		Path:     path,
		Password: password,
		Format:   OpFormat,
	}}}
}

// Marshal renders the wire form handed across the process boundary.
func (o *Operations) Marshal() ([]byte, error) {
	out, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal operations: %w", err)
	}
	return out, nil
}

// ParseOperations decodes a delegated-operation batch received from a
// host and validates the entries.
func ParseOperations(data []byte) (*Operations, error) {
	var ops Operations
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("parse operations: %w", err)
	}
	for i, op := range ops.Operations {
		switch op.Type {
		case OpCreateArchive, OpExtractArchive:
		default:
			return nil, fmt.Errorf("operation %d has unknown type %q", i, op.Type)
		}
		if len(op.Path) == 0 {
			return nil, fmt.Errorf("operation %d has no path", i)
		}
	}
	return &ops, nil
}
