package dashboard

import "errors"

var (
	// ErrEntityNotFound means the entity is absent from the aggregate;
	// no gateway call is made.
	ErrEntityNotFound = errors.New("entity not found in aggregate")

	// ErrRemoteRejected means the gateway answered with a non-success
	// status. The aggregate is left unchanged.
	ErrRemoteRejected = errors.New("update rejected by server")

	// ErrGatewayUnavailable means the gateway could not be reached or
	// timed out.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrStaleAggregate means the response arrived after the caller's
	// context was cancelled; the response is discarded and must not be
	// surfaced to the user.
	ErrStaleAggregate = errors.New("aggregate torn down before response")

	// ErrUpdateInFlight means another reconciliation for the same
	// entity has not resolved yet.
	ErrUpdateInFlight = errors.New("update already in flight for entity")
)
