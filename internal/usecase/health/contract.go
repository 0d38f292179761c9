package health

import "context"

// Pinger is a store that answers PING.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker is a remote dependency with its own health probe.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
