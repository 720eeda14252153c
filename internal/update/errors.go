package update

import (
	"errors"
	"fmt"
)

// Kind classifies a failed update.
type Kind int

const (
	MalformedBody Kind = iota + 1
	EncodingFailed
	TransmitFailed
)

var (
	ErrMalformedBody  = errors.New("request body must be exactly 3 bytes")
	ErrEncodingFailed = errors.New("encoding failed")
	ErrTransmitFailed = errors.New("transmit failed")
)

func (k Kind) sentinel() error {
	switch k {
	case MalformedBody:
		return ErrMalformedBody
	case EncodingFailed:
		return ErrEncodingFailed
	case TransmitFailed:
		return ErrTransmitFailed
	}
	return nil
}

func (k Kind) String() string {
	switch k {
	case MalformedBody:
		return "malformed_body"
	case EncodingFailed:
		return "encoding_failed"
	case TransmitFailed:
		return "transmit_failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// RequestError is returned by Service.Handle. It matches the sentinel of its
// Kind with errors.Is and unwraps to the underlying cause.
type RequestError struct {
	Kind Kind
	// Len is the body length received, set for MalformedBody.
	Len int
	Err error
}

func (e *RequestError) Error() string {
	switch {
	case e.Kind == MalformedBody:
		return fmt.Sprintf("%v: got %d", ErrMalformedBody, e.Len)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind.sentinel(), e.Err)
	}
	return e.Kind.sentinel().Error()
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}
