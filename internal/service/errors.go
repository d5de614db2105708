package service

import "errors"

var (
	// ErrNotConfigured means the instance has no gateway-side resource, so
	// there is nothing to send through.
	ErrNotConfigured = errors.New("instance has no gateway resource configured")

	// ErrNotConnected means the preflight connection check failed.
	ErrNotConnected = errors.New("instance is not connected")

	// ErrSendFailed wraps a gateway rejection of the send call itself.
	ErrSendFailed = errors.New("gateway send failed")
)
