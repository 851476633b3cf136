package port

import "context"

type SequenceGenerator interface {
	// NextSequence atomically increments and returns the counter for key.
	// The first call for a key returns 1.
	NextSequence(ctx context.Context, key string) (int64, error)
}

type IdempotencyGuard interface {
	// Claim returns true the first time a key is seen and false for repeats
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets a claimed key so the request can be retried
	Release(ctx context.Context, key string) error
}
