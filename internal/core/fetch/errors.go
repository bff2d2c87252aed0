package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies why a domain was skipped.
type Kind string

const (
	KindNetwork         Kind = "network"
	KindTimeout         Kind = "timeout"
	KindDecode          Kind = "decode"
	KindUnexpectedShape Kind = "unexpected_shape"
)

// FetchError is returned for a domain that produced no usable metadata.
// It is always recoverable: the caller skips the domain and moves on.
type FetchError struct {
	Kind   Kind
	Domain string
	URL    string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s (%s, status %d): %v", e.Domain, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Domain, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError reports whether err is a *FetchError and returns it.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var ErrUnexpectedShape = errors.New("unexpected response shape")
