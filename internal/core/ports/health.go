package ports

import "context"

// HealthChecker is one dependency probe reported by GET /health.
// Check returns an error when the dependency is unreachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
