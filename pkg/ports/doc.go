// Package ports defines the interfaces the controller depends on: the
// local durable cache, the remote onboarding API, per-step validators,
// and the clock. Adapters live under pkg/adapters; the controller only
// ever sees these contracts, which is what makes it testable without a
// network or a real store.
package ports
