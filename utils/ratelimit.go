package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// ByteLimiter throttles transfer bandwidth to a fixed number of bytes
// per second. A nil *ByteLimiter is valid and imposes no limit.
type ByteLimiter struct {
	limiter *rate.Limiter
}

// NewByteLimiter creates a limiter for the given rate. Zero or negative
// rates return nil, meaning unlimited.
func NewByteLimiter(bytesPerSecond int64) *ByteLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	// Burst of one second's worth keeps chunked reads smooth without
	// letting the average drift above the configured rate.
	return &ByteLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), int(bytesPerSecond)),
	}
}

// WaitN blocks until n bytes may be consumed. Requests larger than the
// burst are split so any chunk size works.
func (b *ByteLimiter) WaitN(ctx context.Context, n int) error {
	if b == nil || b.limiter == nil || n <= 0 {
		return nil
	}
	burst := b.limiter.Burst()
	for n > 0 {
		take := n
		if take > burst {
			take = burst
		}
		if err := b.limiter.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}

// ParseRateLimit parses strings like "5M", "500K", "2G" or a bare byte
// count into bytes per second.
func ParseRateLimit(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty rate limit")
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1024
		s = s[:len(s)-1]
	case 'M':
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case 'G':
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate limit %q: %w", s, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("rate limit must be positive")
	}
	return int64(value * float64(multiplier)), nil
}
