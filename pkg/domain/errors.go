package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrFlowNotFound is returned when a flow ID cannot be resolved by the provider.
var ErrFlowNotFound = errors.New("flow not found")
