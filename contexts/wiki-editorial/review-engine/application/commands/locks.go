package commands

import "time"

// Defaults apply when the module wiring leaves wait/lease unset.
const (
	defaultLockWait  = 3 * time.Second
	defaultLockLease = 10 * time.Second
)

const (
	startLockPrefix    = "review:start:"
	voteLockPrefix     = "vote:"
	finalizeLockPrefix = "review:finalize:"
)

func resolveLockWait(wait time.Duration) time.Duration {
	if wait <= 0 {
		return defaultLockWait
	}
	return wait
}

func resolveLockLease(lease time.Duration) time.Duration {
	if lease <= 0 {
		return defaultLockLease
	}
	return lease
}
