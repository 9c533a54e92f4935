package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"worldip/internal/services"
)

// errVerificationFailed reports a fingerprint mismatch. It is a normal
// outcome, so it carries no further detail.
var errVerificationFailed = errors.New("verification failed")

// errUserMissing is the negative answer of "user exists".
var errUserMissing = errors.New("user not registered")

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return services.ExitOK
	case errors.Is(err, errVerificationFailed), errors.Is(err, errUserMissing):
		return services.ExitMismatch
	case errors.As(err, &usage):
		return services.ExitUsage
	default:
		return services.ExitCode(err)
	}
}

// argsRange wraps cobra.RangeArgs so argument errors exit with usage status.
func argsRange(min, max int) cobra.PositionalArgs {
	check := cobra.RangeArgs(min, max)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

func exactArgs(n int) cobra.PositionalArgs {
	return argsRange(n, n)
}
