package services

import (
	"errors"
	"fmt"
	"strings"

	"worldip/internal/fingerprint"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrRemote        = errors.New("registry error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrUnauthorized  = errors.New("not signed in")

	// ErrIO marks local read and write failures. It is the fingerprint
	// package's marker so content and state errors exit alike.
	ErrIO = fingerprint.ErrIO
)

// Exit codes returned by the CLI. A failed verification is not an error
// value; the command reports it with ExitMismatch directly.
const (
	ExitOK            = 0
	ExitMismatch      = 1
	ExitFailure       = 1
	ExitUsage         = 2
	ExitConfiguration = 3
	ExitIO            = 4
	ExitRemote        = 5
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps an error to the process exit status reported by the CLI.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrValidation), errors.Is(err, fingerprint.ErrEncoding), errors.Is(err, ErrUnauthorized):
		return ExitUsage
	case errors.Is(err, ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, ErrIO):
		return ExitIO
	case errors.Is(err, ErrRemote), errors.Is(err, ErrNotFound), errors.Is(err, ErrTimeout):
		return ExitRemote
	default:
		return ExitFailure
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
