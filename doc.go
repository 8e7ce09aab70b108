// Package gangway is an embeddable controller for multi-step employee
// onboarding flows.
//
// A Controller drives one onboarding session end to end: it redeems an
// invitation token against the HR backend, reconciles the server's view
// of progress with a local durable cache, gates navigation on step
// dependencies, and keeps both stores written through a dual-write
// model in which the local commit is synchronous and the server sync is
// a background, retried, best-effort operation.
//
// The library is transport- and storage-agnostic: the remote API and
// the local cache are ports (see pkg/ports) with adapters for HTTP,
// memory, files, Badger, and Redis under pkg/adapters.
//
// Minimal usage:
//
//	ctrl := gangway.New(apiClient, gangway.WithStore(store))
//	if err := ctrl.Start(ctx, token); err != nil {
//		return err
//	}
//	defer ctrl.Close()
//
//	err := ctrl.MarkStepComplete(ctx, "personal-info", formData)
package gangway
