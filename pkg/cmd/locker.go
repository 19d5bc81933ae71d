package cmd

import (
	"fmt"

	"github.com/assenthq/assent/pkg/locks"
)

// NewLocker picks the per-instance lock backend. A Redis URL buys
// serialization across replicas; the in-process locker is only safe for a
// single API process.
func NewLocker(redisURL string) (locks.Locker, error) {
	if redisURL == "" {
		return locks.NewMemoryLocker(), nil
	}

	locker, err := locks.NewRedisLocker(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis locker: %w", err)
	}

	return locker, nil
}
