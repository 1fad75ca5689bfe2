package domain

import "errors"

var (
	ErrInvalidName     = errors.New("invalid name")
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrPayloadMismatch = errors.New("payload size mismatch")
	ErrStorage         = errors.New("storage failure")
	ErrCancelled       = errors.New("request cancelled by client")
)
