// Package ratelimit implements sliding-window request limits backed by Redis or process memory.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rule allows Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

func PerMinute(n int) Rule { return Rule{Limit: n, Window: time.Minute} }

func PerHour(n int) Rule { return Rule{Limit: n, Window: time.Hour} }

// String renders the rule as "500 per 1 minute".
func (r Rule) String() string {
	switch {
	case r.Window%time.Hour == 0:
		return fmt.Sprintf("%d per %d hour", r.Limit, r.Window/time.Hour)
	case r.Window%time.Minute == 0:
		return fmt.Sprintf("%d per %d minute", r.Limit, r.Window/time.Minute)
	default:
		return fmt.Sprintf("%d per %d second", r.Limit, r.Window/time.Second)
	}
}

// Usage is what a store reports for one hit against one rule.
type Usage struct {
	Allowed bool
	// Count includes the current hit when it was allowed.
	Count int
	// Oldest is the earliest hit still inside the window.
	Oldest time.Time
}

// Store records hits in a sliding window keyed by key.
type Store interface {
	Hit(ctx context.Context, key string, rule Rule, now time.Time) (Usage, error)
}

// Result is the outcome of a request against every rule of a Limiter.
type Result struct {
	Allowed   bool
	Rule      Rule
	Remaining int
	Reset     time.Time
	// RetryAfter is zero when the request was allowed.
	RetryAfter time.Duration
}

type Limiter struct {
	store Store
	rules []Rule
	now   func() time.Time
}

func New(store Store, rules ...Rule) *Limiter {
	return &Limiter{store: store, rules: rules, now: time.Now}
}

// Allow counts a hit for key against each rule in order and stops at the first rule
// that refuses it. An allowed result describes the rule with the fewest hits left.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()

	var tightest Result
	for i, rule := range l.rules {
		usage, err := l.store.Hit(ctx, storeKey(key, rule), rule, now)
		if err != nil {
			return Result{}, fmt.Errorf("rate limit %s: %w", rule, err)
		}

		reset := now.Add(rule.Window)
		if !usage.Oldest.IsZero() {
			reset = usage.Oldest.Add(rule.Window)
		}

		res := Result{
			Allowed:   usage.Allowed,
			Rule:      rule,
			Remaining: max(rule.Limit-usage.Count, 0),
			Reset:     reset,
		}
		if !usage.Allowed {
			res.RetryAfter = max(reset.Sub(now), time.Second)
			return res, nil
		}
		if i == 0 || res.Remaining < tightest.Remaining {
			tightest = res
		}
	}
	tightest.Allowed = true
	return tightest, nil
}

func storeKey(key string, rule Rule) string {
	return fmt.Sprintf("ratelimit:%d:%s", int64(rule.Window/time.Second), key)
}
