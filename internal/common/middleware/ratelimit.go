package middleware

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 入口限流器，挂在 HTTP 中间件链上。
type RateLimiter interface {
	Allow(ctx context.Context) bool
}

// 限流策略名，对应配置里的 rate_limit.strategy
const (
	StrategyTokenBucket   = "token_bucket"
	StrategySlidingWindow = "sliding_window"
)

// NewLimiter 按策略名构造限流器，未知策略回落到令牌桶。
func NewLimiter(strategy string, capacity, refillRate int64, window time.Duration) RateLimiter {
	if strategy == StrategySlidingWindow {
		return NewSlidingWindow(window, int(capacity))
	}
	return NewTokenBucket(capacity, refillRate)
}

// TokenBucket 令牌桶，允许 capacity 大小的突发，稳态速率 refillRate/s。
// 令牌按小数累计，短间隔请求不会丢失补充量。
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64
	last       time.Time
}

func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: float64(refillRate),
		last:       time.Now(),
	}
}

func (tb *TokenBucket) Allow(_ context.Context) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.last).Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.last = now

	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// SlidingWindow 滑动窗口，严格限制窗口内的请求总数，无突发额度。
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration, limit int) *SlidingWindow {
	return &SlidingWindow{window: window, limit: limit}
}

func (sw *SlidingWindow) Allow(_ context.Context) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cutoff := time.Now().Add(-sw.window)
	// hits 按时间递增，砍掉窗口外的前缀即可
	i := 0
	for i < len(sw.hits) && !sw.hits[i].After(cutoff) {
		i++
	}
	sw.hits = sw.hits[i:]

	if len(sw.hits) >= sw.limit {
		return false
	}
	sw.hits = append(sw.hits, time.Now())
	return true
}
