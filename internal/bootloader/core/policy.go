package core

import "time"

// RetryPolicy bounds a retried acquisition: Attempts outer tries, each
// polling up to Polls times at Interval. Every wait in the boot core is
// bounded by one of these; nothing blocks indefinitely.
type RetryPolicy struct {
	Attempts int
	Polls    int
	Interval time.Duration
}

// WaitPolicy bounds a single polled wait.
type WaitPolicy struct {
	Polls    int
	Interval time.Duration
}

// DefaultDHCPPolicy matches the stock bring-up budget: five lease attempts,
// each polled twenty times at 100ms, roughly ten seconds worst case.
func DefaultDHCPPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Polls: 20, Interval: 100 * time.Millisecond}
}

// DefaultConnWait is the per-connection wait for initial request bytes.
func DefaultConnWait() WaitPolicy {
	return WaitPolicy{Polls: 200, Interval: 25 * time.Millisecond}
}

// DefaultUploadIdleWait is the grace period ingestion grants a paused peer
// before treating the upload as finished.
func DefaultUploadIdleWait() WaitPolicy {
	return WaitPolicy{Polls: 40, Interval: 25 * time.Millisecond}
}
