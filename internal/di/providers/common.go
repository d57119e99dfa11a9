package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// sessionPruneInterval is how often expired sessions are dropped.
	sessionPruneInterval = 1 * time.Hour
)
