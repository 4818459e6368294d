package handler

import (
	"errors"

	"github.com/dukex/pvm/pkg/auth"
	"github.com/dukex/pvm/pkg/nodes"
	"github.com/dukex/pvm/pkg/process"
	"github.com/dukex/pvm/pkg/state"
)

// ErrStale is returned for commands about pointers or executions that are
// gone or already terminal. Redelivered messages end up here.
var ErrStale = errors.New("stale message")

func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}

// IsClientError reports errors caused by the command itself. Retrying the
// same message would fail the same way.
func IsClientError(err error) bool {
	return nodes.IsValidationError(err) ||
		nodes.IsCannotMove(err) ||
		auth.IsAuthenticationError(err) ||
		auth.IsMisconfiguredProvider(err) ||
		process.IsProcessNotFound(err) ||
		process.IsMalformedProcess(err) ||
		process.IsElementNotFound(err) ||
		errors.Is(err, state.ErrInvalidReference)
}
