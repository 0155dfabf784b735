// Package apierrors defines the sentinel error kinds shared across the
// scheduler core, so callers can errors.Is/errors.As against a stable set
// instead of matching on message strings.
package apierrors

import "errors"

// Kind classifies an error for HTTP status mapping and operator dashboards.
type Kind string

const (
	KindInvalidDeadline     Kind = "invalid_deadline"
	KindCatalogMalformed    Kind = "catalog_malformed"
	KindNoFeasibleAssignment Kind = "no_feasible_assignment"
	KindExecutorUnavailable Kind = "executor_unavailable"
	KindBusDisconnect       Kind = "bus_disconnect"
)

var (
	// ErrInvalidDeadline is returned when a request's deadline falls outside [0, Δ).
	ErrInvalidDeadline = errors.New("deadline outside horizon")

	// ErrCatalogMalformed is returned when the strategy table or intensity
	// sequence fails load-time validation. Fatal at startup.
	ErrCatalogMalformed = errors.New("catalog malformed")

	// ErrNoFeasibleAssignment is returned when the solver cannot meet the
	// error budget or deadline constraints within its wall-clock budget.
	ErrNoFeasibleAssignment = errors.New("no feasible assignment")

	// ErrExecutorUnavailable is returned when a dispatch callout fails.
	ErrExecutorUnavailable = errors.New("executor unavailable")

	// ErrBusDisconnect is returned when the tick or slot bus connection is lost.
	ErrBusDisconnect = errors.New("bus disconnected")
)

// KindOf maps a sentinel error to its Kind for logging and HTTP responses.
// Returns "" if err does not wrap any known sentinel.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidDeadline):
		return KindInvalidDeadline
	case errors.Is(err, ErrCatalogMalformed):
		return KindCatalogMalformed
	case errors.Is(err, ErrNoFeasibleAssignment):
		return KindNoFeasibleAssignment
	case errors.Is(err, ErrExecutorUnavailable):
		return KindExecutorUnavailable
	case errors.Is(err, ErrBusDisconnect):
		return KindBusDisconnect
	default:
		return ""
	}
}
