// Package ffi is the flat host boundary: integer status codes and JSON
// payloads only, so non-Go hosts (desktop shells, mobile runtimes) can
// bind it without sharing Go types. Desktop hosts get a full session
// manager; mobile hosts get a bare repository and shuttle file maps
// themselves.
package ffi

import (
	"errors"

	"coffre/archive"
	"coffre/crypt"
	"coffre/manager"
	"coffre/repo"
)

// Code is the status returned by every boundary call.
type Code int

// Status codes. The numbering is part of the host contract; never
// renumber.
const (
	OK                     Code = 0
	CodeInvalidParameter   Code = 1
	CodeNotInitialized     Code = 2
	CodeAlreadyInitialized Code = 3
	CodeSerializationError Code = 4
	CodeValidationFailed   Code = 5
	CodeNotFound           Code = 8
	CodeInvalidPassword    Code = 9
	CodeCorruptedArchive   Code = 10
	CodePermissionDenied   Code = 11
	CodeFileNotFound       Code = 12
	CodeNotOpen            Code = 13
	CodeAlreadyOpen        Code = 14
	CodeArchiveExists      Code = 15
	CodeWeakPassword       Code = 16
	CodeUnsavedChanges     Code = 17
	// CodeExternalOperations is not a failure: the host must execute
	// the returned operation descriptors to finish the call.
	CodeExternalOperations Code = 20
	CodeInternal           Code = 99
)

// String names a code for host-side logs.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case CodeInvalidParameter:
		return "invalid_parameter"
	case CodeNotInitialized:
		return "not_initialized"
	case CodeAlreadyInitialized:
		return "already_initialized"
	case CodeSerializationError:
		return "serialization_error"
	case CodeValidationFailed:
		return "validation_failed"
	case CodeNotFound:
		return "not_found"
	case CodeInvalidPassword:
		return "invalid_password"
	case CodeCorruptedArchive:
		return "corrupted_archive"
	case CodePermissionDenied:
		return "permission_denied"
	case CodeFileNotFound:
		return "file_not_found"
	case CodeNotOpen:
		return "not_open"
	case CodeAlreadyOpen:
		return "already_open"
	case CodeArchiveExists:
		return "archive_exists"
	case CodeWeakPassword:
		return "weak_password"
	case CodeUnsavedChanges:
		return "unsaved_changes"
	case CodeExternalOperations:
		return "external_operations_required"
	default:
		return "internal_error"
	}
}

// mapError flattens a Go error into a boundary code.
func mapError(err error) Code {
	if err == nil {
		return OK
	}

	switch {
	case errors.Is(err, repo.ErrNotInitialized):
		return CodeNotInitialized
	case errors.Is(err, repo.ErrAlreadyInitialized):
		return CodeAlreadyInitialized
	case errors.Is(err, manager.ErrNotOpen):
		return CodeNotOpen
	case errors.Is(err, manager.ErrAlreadyOpen):
		return CodeAlreadyOpen
	case errors.Is(err, manager.ErrArchiveExists):
		return CodeArchiveExists
	case errors.Is(err, manager.ErrWeakPassword):
		return CodeWeakPassword
	case errors.Is(err, manager.ErrUnsavedChanges):
		return CodeUnsavedChanges
	case errors.Is(err, crypt.ErrWrongPassphrase):
		return CodeInvalidPassword
	case errors.Is(err, crypt.ErrInvalidMagic),
		errors.Is(err, crypt.ErrInvalidVersion),
		errors.Is(err, crypt.ErrTruncated),
		errors.Is(err, archive.ErrCorrupted):
		return CodeCorruptedArchive
	}

	var notFound repo.NotFoundError
	if errors.As(err, &notFound) {
		return CodeNotFound
	}
	var fileNotFound archive.NotFoundError
	if errors.As(err, &fileNotFound) {
		return CodeFileNotFound
	}
	var permission archive.PermissionError
	if errors.As(err, &permission) {
		return CodePermissionDenied
	}
	var validation repo.ValidationError
	if errors.As(err, &validation) {
		return CodeValidationFailed
	}
	var duplicate repo.DuplicateIDError
	if errors.As(err, &duplicate) {
		return CodeValidationFailed
	}
	var structure repo.StructureError
	if errors.As(err, &structure) {
		return CodeCorruptedArchive
	}
	var serialization repo.SerializationError
	if errors.As(err, &serialization) {
		return CodeSerializationError
	}

	return CodeInternal
}
