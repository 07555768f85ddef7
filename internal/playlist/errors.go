package playlist

import "errors"

var (
	// ErrForbidden: the caller does not own the playlist.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalid: the request failed validation.
	ErrInvalid = errors.New("invalid input")
)
