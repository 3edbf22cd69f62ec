package resilience

import (
	"errors"
	"sync"
	"time"
)

// RateLimitError marks a 429-style response from a remote service
// (translation API, synthesis engine). Only these errors count toward
// opening a breaker; plain failures are the retry policy's problem.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limit"
	}
	return e.Message
}

func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

// CircuitBreaker opens after a run of consecutive rate limit errors and
// stays open for the cooldown window. While open, callers skip the
// backend instead of hammering a throttled service; any success closes
// it and clears the run.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	run      int
	reopenAt time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed.
func (c *CircuitBreaker) Allow() bool {
	open, _ := c.OpenUntil()
	return !open
}

// OpenUntil reports whether the breaker is open and when it re-closes.
func (c *CircuitBreaker) OpenUntil() (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().Before(c.reopenAt) {
		return true, c.reopenAt
	}
	return false, time.Time{}
}

// OnSuccess closes the breaker and clears the failure run.
func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	c.run = 0
	c.reopenAt = time.Time{}
	c.mu.Unlock()
}

// OnError extends the failure run for rate limit errors and opens the
// breaker once the run reaches the threshold. Other errors are ignored.
func (c *CircuitBreaker) OnError(err error) {
	if !IsRateLimit(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run++
	if c.run >= c.threshold {
		c.reopenAt = time.Now().Add(c.cooldown)
	}
}
