package schema

import (
	"errors"
	"fmt"
)

var ErrMissingField = errors.New("field missing from row")

func IsMissingFieldErr(err error) bool { return errors.Is(err, ErrMissingField) }

var ErrUnsupportedType = errors.New("unsupported data type")

// ConversionError is returned when a non-empty value cannot be coerced to
// the declared type. The record it belongs to must not be emitted.
type ConversionError struct {
	Value any
	Type  DataType
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("could not convert %v to %s: %v", e.Value, e.Type, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func IsConversionErr(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}
