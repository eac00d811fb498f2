package provider

import "context"

// Provider defines the contract for storage backends that receive a finished listing.
// Paths/keys are plain strings so implementations can decide their own format.
type Provider interface {
	// Publish uploads the local listing file (source) to remote storage (target).
	Publish(ctx context.Context, source, target string) error

	// Name returns the provider identifier (e.g. "azure").
	Name() string
}
