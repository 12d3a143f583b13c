package billing

import "errors"

var (
	// ErrDisabled is returned by the null provider for operations that
	// require a live billing backend.
	ErrDisabled = errors.New("billing: provider disabled")

	// ErrSessionNotFound indicates an unknown checkout session id.
	ErrSessionNotFound = errors.New("billing: checkout session not found")

	// ErrSubscriptionNotFound indicates an unknown subscription id.
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
)
