package cli

import "fmt"

// ExitCoder is an error that chooses the process exit code.
type ExitCoder interface {
	error
	ExitCode() int
}

// UsageError is a user-facing mistake in how the program was invoked. It exits with 2 and prints the command's usage.
type UsageError struct {
	Message string
}

func (e UsageError) Error() string { return e.Message }
func (e UsageError) ExitCode() int { return 2 }

func usageErrorf(format string, args ...any) UsageError {
	return UsageError{Message: fmt.Sprintf(format, args...)}
}

// ExitError attaches an exit code to Err.
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e ExitError) Unwrap() error { return e.Err }
func (e ExitError) ExitCode() int { return e.Code }

// NoArgs rejects any positional args.
func NoArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	return usageErrorf("expected no args, got %d", len(args))
}

// ExactArgs requires exactly n positional args.
func ExactArgs(n int) ArgsFunc {
	return RangeArgs(n, n)
}

// MinimumArgs requires at least n positional args.
func MinimumArgs(n int) ArgsFunc {
	return func(args []string) error {
		if len(args) >= n {
			return nil
		}
		return usageErrorf("expected at least %s, got %d", pluralArgs(n), len(args))
	}
}

// RangeArgs requires between min and max positional args, inclusive.
func RangeArgs(min, max int) ArgsFunc {
	return func(args []string) error {
		if len(args) >= min && len(args) <= max {
			return nil
		}
		if min == max {
			return usageErrorf("expected %s, got %d", pluralArgs(min), len(args))
		}
		return usageErrorf("expected %d-%s, got %d", min, pluralArgs(max), len(args))
	}
}

func pluralArgs(n int) string {
	if n == 1 {
		return "1 arg"
	}
	return fmt.Sprintf("%d args", n)
}
