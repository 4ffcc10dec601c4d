// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package verr defines the stable error taxonomy carried across the
// external API contract (spec §7). Every error the core returns to a
// caller wraps one of these kinds so the HTTP layer can map it to a
// code without inspecting message text.
package verr

import "errors"

// Kind is a stable external error code.
type Kind string

const (
	AuthenticationFailed  Kind = "AuthenticationFailed"
	InsufficientPerms     Kind = "InsufficientPermissions"
	NotFound              Kind = "NotFound"
	AlreadyExists         Kind = "AlreadyExists"
	InvalidRequest        Kind = "InvalidRequest"
	VerificationRequired  Kind = "VerificationRequired"
	InviteExpired         Kind = "InviteExpired"
	KeyMismatch           Kind = "KeyMismatch"
	DecryptionFailed      Kind = "DecryptionFailed"
	RateLimited           Kind = "RateLimited"
	ServerError           Kind = "ServerError"
)

// Error is the concrete type every exported operation returns on failure.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with a human message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying cause, preserving it
// for errors.Is/As chains while keeping the external code stable.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Code extracts the external Kind from err, defaulting to ServerError for
// errors that were never classified — an internal bug, not an expected
// failure mode, so callers still get a well-formed response.
func Code(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ServerError
}
