package domain

import "time"

// RateLimitPolicy bounds the number of attempts per key within a sliding window.
type RateLimitPolicy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single rate-limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}
