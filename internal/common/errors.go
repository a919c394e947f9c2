// Package common defines shared constants and sentinel errors used across
// MediaVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Identity errors. ErrUnauthenticated means no usable identity at all;
	// ErrForbidden means the identity is valid but not allowed to touch
	// the asset in question.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")

	// Input validation errors.
	ErrBadRequest      = errors.New("bad request")
	ErrUnsupportedType = errors.New("unsupported media type")

	// Upload ticket lifecycle errors.
	ErrInvalidTicket = errors.New("invalid ticket")
	ErrTicketExpired = errors.New("ticket expired")

	// Optimistic concurrency: the caller presented a stale version and
	// must re-read before resubmitting.
	ErrVersionConflict = errors.New("version conflict")

	ErrInternal = errors.New("internal error")
)
