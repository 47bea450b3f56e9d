package repository

import (
	"errors"
	"fmt"
)

// Custom error types
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrTransport         = errors.New("transport error")
	ErrRemote            = errors.New("remote error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrImageDecode       = errors.New("image decode error")
)

// RemoteError reports a non-200 answer from the weather service.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote error: status %d: %s", e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrRemote) match any status.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// ErrorKind classifies failures for the presentation layer.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidRequest
	KindTransport
	KindRemote
	KindMalformedResponse
	KindImageDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindTransport:
		return "TransportError"
	case KindRemote:
		return "RemoteError"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindImageDecode:
		return "ImageDecodeError"
	default:
		return "Unknown"
	}
}

// KindOf maps an error returned by this package to its kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrRemote):
		return KindRemote
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrImageDecode):
		return KindImageDecode
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}

// StatusCode returns the HTTP status carried by a RemoteError, or 0.
func StatusCode(err error) int {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.StatusCode
	}
	return 0
}
