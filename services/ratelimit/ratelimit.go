// Package ratelimit bounds request frequency per (rule, identity) over a
// trailing window. Counters live in memory or, for multi-instance
// deployments, in Redis sorted sets.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidRule = errors.New("rate limit rule requires a positive limit and window")

// Rule names a limit. Name is part of the counter key so endpoints do not share budgets.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store records admitted hits. Allow must check and record in one atomic step.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

type Limiter struct {
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check admits or rejects one call from identity under rule.
func (l *Limiter) Check(ctx context.Context, rule Rule, identity string) (Decision, error) {
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{}, ErrInvalidRule
	}
	return l.store.Allow(ctx, rule.Name+":"+identity, rule.Limit, rule.Window, l.now())
}
