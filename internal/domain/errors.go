package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means microphone access was refused.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceError covers every other acquisition failure.
	ErrDeviceError = errors.New("microphone device error")
	// ErrDeviceRateMismatch is returned when a stream cannot be attached to a
	// context running at a different fixed sample rate.
	ErrDeviceRateMismatch = errors.New("device sample rate differs from audio context rate")
	// ErrEmptyText rejects synthesis of blank input.
	ErrEmptyText = errors.New("text to speak is empty")
)

// RemoteError is an error payload reported by a cloud gateway.
type RemoteError struct {
	Code    int
	Message string
}

// Error returns the remote message verbatim.
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error %d", e.Code)
	}
	return e.Message
}

// AsRemoteError reports whether err carries a RemoteError.
func AsRemoteError(err error) (*RemoteError, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote, true
	}
	return nil, false
}
