package health

import "context"

// StorePinger checks memory store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an AI provider's availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
