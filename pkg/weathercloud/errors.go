package weathercloud

import (
	"errors"
	"fmt"
)

var (
	// ErrNoValue is returned by RequestReading before any value was obtained.
	ErrNoValue = errors.New("no value yet")

	// ErrUnknownCharacteristic rejects push notifications for fields the
	// sensor does not expose.
	ErrUnknownCharacteristic = errors.New("unknown characteristic")
)

// AuthError reports a rejected sign-in.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed: %v", e.Err)
	}
	return fmt.Sprintf("login failed: redirect expected, got status %d", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

type FetchErrorKind int

const (
	TransportFailure FetchErrorKind = iota
	UnexpectedStatus
	MalformedResponse
)

func (k FetchErrorKind) String() string {
	switch k {
	case TransportFailure:
		return "transport"
	case UnexpectedStatus:
		return "unexpected status"
	case MalformedResponse:
		return "malformed response"
	}
	return "unknown"
}

// FetchError classifies a failed device-values request.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case UnexpectedStatus:
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	case TransportFailure:
		return fmt.Sprintf("transport: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %v", e.Err)
	}
	return "malformed response"
}

func (e *FetchError) Unwrap() error { return e.Err }

// PollError is the terminal failure of a refresh cycle. Err may combine
// several attempts, see multierr.Errors.
type PollError struct {
	Logins  int
	Fetches int
	Err     error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll failed (%d login(s), %d fetch(es)): %v", e.Logins, e.Fetches, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }
