package sse

import (
	"errors"
	"time"
)

var (
	// ErrInvalidBackoffFactor is returned when the backoff factor is below 1
	ErrInvalidBackoffFactor = errors.New("backoff factor must be at least 1")
	// ErrInvalidMaxDelay is returned when the maximum delay is below the initial delay
	ErrInvalidMaxDelay = errors.New("max delay cannot be less than initial delay")
	// ErrInvalidDelay is returned when the initial delay is negative
	ErrInvalidDelay = errors.New("initial delay cannot be negative")
)

// ReconnectPolicy controls whether and how a Stream reconnects after a failure.
// It is immutable once built.
type ReconnectPolicy struct {
	reconnect     bool
	retryInitial  bool
	initialDelay  time.Duration
	backoffFactor uint32
	maxDelay      time.Duration
}

// DefaultReconnectPolicy reconnects after stream errors but does not retry a
// failed initial connection. It waits 1s before the first reconnect and backs
// off by a factor of 2 up to 60s.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		reconnect:     true,
		retryInitial:  false,
		initialDelay:  time.Second,
		backoffFactor: 2,
		maxDelay:      time.Minute,
	}
}

// ReconnectEnabled reports whether the stream is retried after a failure
func (p ReconnectPolicy) ReconnectEnabled() bool { return p.reconnect }

// RetryInitial reports whether a failed first connection attempt is retried
func (p ReconnectPolicy) RetryInitial() bool { return p.retryInitial }

// InitialDelay returns the delay before the first reconnect attempt
func (p ReconnectPolicy) InitialDelay() time.Duration { return p.initialDelay }

// BackoffFactor returns the multiplier applied per consecutive failure
func (p ReconnectPolicy) BackoffFactor() uint32 { return p.backoffFactor }

// MaxDelay returns the upper bound on any computed delay
func (p ReconnectPolicy) MaxDelay() time.Duration { return p.maxDelay }

// Delay returns min(initialDelay * backoffFactor^n, maxDelay) for the n-th
// consecutive failure (0-based).
func (p ReconnectPolicy) Delay(n int) time.Duration {
	delay := p.initialDelay
	if delay >= p.maxDelay {
		return p.maxDelay
	}
	if p.backoffFactor <= 1 {
		return delay
	}

	factor := time.Duration(p.backoffFactor)
	for i := 0; i < n; i++ {
		// Compare before multiplying so the product cannot overflow.
		if delay > p.maxDelay/factor {
			return p.maxDelay
		}
		delay *= factor
	}

	if delay > p.maxDelay {
		return p.maxDelay
	}
	return delay
}

// ShouldRetry reports whether a failure may be retried. connectedBefore is
// true once the stream has had at least one successful connection.
func (p ReconnectPolicy) ShouldRetry(connectedBefore bool) bool {
	if !p.reconnect {
		return false
	}
	return connectedBefore || p.retryInitial
}

// ReconnectPolicyBuilder builds a ReconnectPolicy starting from the defaults.
type ReconnectPolicyBuilder struct {
	policy ReconnectPolicy
}

// NewReconnectPolicy starts building a policy with reconnection enabled or disabled
func NewReconnectPolicy(reconnect bool) *ReconnectPolicyBuilder {
	policy := DefaultReconnectPolicy()
	policy.reconnect = reconnect
	return &ReconnectPolicyBuilder{policy: policy}
}

// RetryInitial sets whether a failed first connection is retried with the same backoff
func (b *ReconnectPolicyBuilder) RetryInitial(retry bool) *ReconnectPolicyBuilder {
	b.policy.retryInitial = retry
	return b
}

// Delay sets the wait before the first reconnect attempt
func (b *ReconnectPolicyBuilder) Delay(delay time.Duration) *ReconnectPolicyBuilder {
	b.policy.initialDelay = delay
	return b
}

// BackoffFactor sets the growth factor between attempts; 1 disables growth
func (b *ReconnectPolicyBuilder) BackoffFactor(factor uint32) *ReconnectPolicyBuilder {
	b.policy.backoffFactor = factor
	return b
}

// MaxDelay sets the upper bound on the wait between attempts
func (b *ReconnectPolicyBuilder) MaxDelay(max time.Duration) *ReconnectPolicyBuilder {
	b.policy.maxDelay = max
	return b
}

// Build validates and returns the policy
func (b *ReconnectPolicyBuilder) Build() (ReconnectPolicy, error) {
	p := b.policy
	if p.initialDelay < 0 {
		return ReconnectPolicy{}, ErrInvalidDelay
	}
	if p.backoffFactor < 1 {
		return ReconnectPolicy{}, ErrInvalidBackoffFactor
	}
	if p.maxDelay < p.initialDelay {
		return ReconnectPolicy{}, ErrInvalidMaxDelay
	}
	return p, nil
}
