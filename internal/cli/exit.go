package cli

import (
	"errors"

	"github.com/deppfellow/adoption-agency/internal/errs"
)

// Exit codes for CLI commands.
const (
	ExitSuccess  = 0
	ExitFailure  = 1 // configuration, connection or usage problems
	ExitRejected = 2 // the request broke a species rule (missing, duplicate, unknown id)
)

// ExitCode maps the error returned by a command onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errs.FromDomainError(err) != nil {
		return ExitRejected
	}

	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status < 500 {
		return ExitRejected
	}

	return ExitFailure
}
