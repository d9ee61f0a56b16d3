// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across connector/service/repository layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfig indicates missing or invalid configuration (vault secret, client credentials).
	// Fatal for the whole run, never retried.
	ErrConfig = errors.New("configuration error")

	// ErrAuth indicates the upstream platform rejected the stored credential.
	// Terminal for the account until re-authorization.
	ErrAuth = errors.New("authorization rejected")

	// ErrRateLimited indicates local or upstream throttling; retry later, not immediately.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a network failure or upstream 5xx; eligible for the next cycle.
	ErrTransient = errors.New("transient upstream failure")

	// ErrIntegrity indicates a corrupted or tampered encrypted payload.
	ErrIntegrity = errors.New("payload integrity check failed")

	// ErrDemoWriteBlocked indicates a mutating operation was attempted against a demo tenant.
	ErrDemoWriteBlocked = errors.New("demo tenant is write-blocked")

	// ErrUnknownPlatform indicates no connector is registered for the platform.
	ErrUnknownPlatform = errors.New("unknown platform")
)
