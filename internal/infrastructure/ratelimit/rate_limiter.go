package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage   = "send_message"
	ActionCreateChat    = "create_chat"
	ActionTyping        = "typing"
	ActionEditMessage   = "edit_message"
	ActionReportMessage = "report_message"
	ActionSearchUsers   = "search_users"
	ActionHTTP          = "http"
)

// Policy is a token bucket: Burst tokens, refilled one every Every.
type Policy struct {
	Burst int
	Every time.Duration
}

var defaultPolicies = map[string]Policy{
	// 10 messages per minute
	ActionSendMessage: {Burst: 10, Every: 6 * time.Second},
	// 5 new conversations per hour
	ActionCreateChat: {Burst: 5, Every: 12 * time.Minute},
	// 30 typing events per minute
	ActionTyping:        {Burst: 30, Every: 2 * time.Second},
	ActionEditMessage:   {Burst: 20, Every: 3 * time.Second},
	ActionReportMessage: {Burst: 5, Every: time.Minute},
	ActionSearchUsers:   {Burst: 30, Every: 2 * time.Second},
	// 60 requests per minute per client IP
	ActionHTTP: {Burst: 60, Every: time.Second},
}

var fallbackPolicy = Policy{Burst: 20, Every: 3 * time.Second}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per "subject:action" key.
type RateLimiter struct {
	buckets  map[string]*bucket
	policies map[string]Policy
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithPolicies(nil)
}

// NewRateLimiterWithPolicies overrides the default policy for the given actions.
func NewRateLimiterWithPolicies(overrides map[string]Policy) *RateLimiter {
	policies := make(map[string]Policy, len(defaultPolicies)+len(overrides))
	for k, v := range defaultPolicies {
		policies[k] = v
	}
	for k, v := range overrides {
		policies[k] = v
	}
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		policies: policies,
		now:      time.Now,
	}
}

func (rl *RateLimiter) policy(action string) Policy {
	if p, ok := rl.policies[action]; ok {
		return p
	}
	return fallbackPolicy
}

// Allow consumes a token for subject's action. When the bucket is empty it
// reports how long until the next token.
func (rl *RateLimiter) Allow(subject, action string) (bool, time.Duration) {
	key := subject + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		p := rl.policy(action)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Every), p.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// GetStatus returns the tokens left for subject's action and the bucket size.
func (rl *RateLimiter) GetStatus(subject, action string) (tokens int, maxTokens int) {
	rl.mutex.Lock()
	b, exists := rl.buckets[subject+":"+action]
	rl.mutex.Unlock()
	if !exists {
		return 0, 0
	}
	return int(b.limiter.TokensAt(rl.now())), b.limiter.Burst()
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > maxIdle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine sweeps idle buckets until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			}
		}
	}()
}
