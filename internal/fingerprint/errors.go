package fingerprint

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks failures opening or reading file content. The underlying
	// error is always wrapped alongside it.
	ErrIO = errors.New("content read failed")
	// ErrEncoding marks text that is not a valid byte sequence in its
	// declared encoding.
	ErrEncoding = errors.New("invalid text encoding")
)

func ioError(detail string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, detail, err)
}

func encodingError(detail string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEncoding, detail, err)
	}
	return fmt.Errorf("%w: %s", ErrEncoding, detail)
}
