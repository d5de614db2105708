// Package service implements the instance state synchronization engine: the
// pull-path reconciler, the send orchestrator and the push-path ingestor.
package service

import "context"

// Gateway is the subset of gateway operations the engine needs. QueryState and
// QueryOwnerNumber never fail; they degrade to "closed" and "" respectively.
type Gateway interface {
	QueryState(ctx context.Context, instanceName string) string
	QueryOwnerNumber(ctx context.Context, instanceName string) string
	SendText(ctx context.Context, instanceName, recipient, body string) (map[string]any, error)
}

// Dispatcher fans an event out to the instance's webhook subscribers.
// Implementations decide whether delivery happens on the caller's goroutine or
// in the background; callers must not rely on delivery having completed when
// Dispatch returns, and Dispatch never reports delivery failures back.
type Dispatcher interface {
	Dispatch(instanceID, event string, data map[string]any)
}

// Deduper suppresses re-processing of gateway pushes that were already seen.
// FirstSeen reports whether key is new. Implementations that cannot answer
// (cache down, cache disabled) should report true: persisting a duplicate is
// preferable to dropping an event.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}
