package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"indian-airlines-ivr/internal/clients/redis"
	"indian-airlines-ivr/internal/metrics"
	"indian-airlines-ivr/internal/observability"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	backendRedis = "redis"
	backendLocal = "local"

	keyPrefix       = "ivr:rl:"
	cleanupInterval = 5 * time.Minute
)

// Result represents the result of a rate limit check
type Result struct {
	Allowed      bool      `json:"allowed"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
	RetryAfterMs int       `json:"retry_after_ms,omitempty"`
}

// Service limits requests per client over a sliding window. Redis is used
// when available so every replica shares the same window; otherwise each
// process keeps token buckets in memory.
type Service struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	logger *observability.Logger
	now    func() time.Time

	mu          sync.Mutex
	local       map[string]*localEntry
	lastCleanup time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewService creates a limiter allowing perMinute requests per client. A
// non-positive perMinute disables limiting.
func NewService(redisClient *redis.Client, perMinute int, logger *observability.Logger) *Service {
	return &Service{
		redis:       redisClient,
		limit:       perMinute,
		window:      time.Minute,
		logger:      logger,
		now:         time.Now,
		local:       make(map[string]*localEntry),
		lastCleanup: time.Now(),
	}
}

// Enabled reports whether requests are limited at all.
func (s *Service) Enabled() bool {
	return s != nil && s.limit > 0
}

// CheckRateLimit records a request from client and reports whether it is
// within the limit.
func (s *Service) CheckRateLimit(ctx context.Context, client string) (Result, error) {
	if !s.Enabled() {
		return Result{Allowed: true}, nil
	}

	if s.redis.IsEnabled() {
		result, err := s.checkRateLimitRedis(ctx, client)
		if err == nil {
			if !result.Allowed {
				metrics.IncRateLimited(backendRedis)
			}
			return result, nil
		}
		s.logger.Warn(observability.WithFields(ctx, observability.Field{Key: "error", Value: err.Error()}),
			"redis rate limit check failed, falling back to in-process limiter")
	}

	result := s.checkRateLimitLocal(client)
	if !result.Allowed {
		metrics.IncRateLimited(backendLocal)
	}
	return result, nil
}

// slidingWindowScript trims, counts and records a request in one step so
// concurrent callers cannot all observe the same count and overshoot the
// limit. It returns {allowed, count before this request, oldest score}.
var slidingWindowScript = goredis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]
	local ttl = tonumber(ARGV[5])

	redis.call('ZREMRANGEBYSCORE', key, 0, ARGV[2])
	local count = redis.call('ZCARD', key)

	if count >= limit then
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		local score = -1
		if oldest[2] then
			score = tonumber(oldest[2])
		end
		return {0, count, score}
	end

	redis.call('ZADD', key, ARGV[1], member)
	redis.call('PEXPIRE', key, ttl)
	return {1, count, now}
`)

// checkRateLimitRedis keeps one sorted set per client; members are request
// timestamps in milliseconds.
func (s *Service) checkRateLimitRedis(ctx context.Context, client string) (Result, error) {
	key := keyPrefix + client
	now := s.now()
	nowMs := now.UnixMilli()
	windowStartMs := now.Add(-s.window).UnixMilli()

	// Two requests in the same millisecond must not collapse into one member.
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	reply, err := slidingWindowScript.Run(ctx, s.redis.GetClient(),
		[]string{key},
		nowMs, windowStartMs, s.limit, member, (2 * s.window).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("failed to run sliding window: %w", err)
	}
	if len(reply) != 3 {
		return Result{}, fmt.Errorf("unexpected sliding window reply: %v", reply)
	}

	count := int(reply[1])
	if reply[0] == 1 {
		return Result{
			Allowed:   true,
			Limit:     s.limit,
			Remaining: s.limit - count - 1,
			ResetAt:   now.Add(s.window),
		}, nil
	}

	if reply[2] < 0 {
		return Result{
			Limit:        s.limit,
			ResetAt:      now.Add(s.window),
			RetryAfterMs: int(s.window.Milliseconds()),
		}, nil
	}

	resetAt := time.UnixMilli(reply[2]).Add(s.window)
	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Result{
		Limit:        s.limit,
		ResetAt:      resetAt,
		RetryAfterMs: int(retryAfter.Milliseconds()),
	}, nil
}

func (s *Service) checkRateLimitLocal(client string) Result {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeCleanup(now)

	entry, ok := s.local[client]
	if !ok {
		every := s.window / time.Duration(s.limit)
		entry = &localEntry{limiter: rate.NewLimiter(rate.Every(every), s.limit)}
		s.local[client] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		remaining := int(entry.limiter.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		return Result{
			Allowed:   true,
			Limit:     s.limit,
			Remaining: remaining,
			ResetAt:   now.Add(s.window),
		}
	}

	r := entry.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return Result{
		Limit:        s.limit,
		ResetAt:      now.Add(delay),
		RetryAfterMs: int(delay.Milliseconds()),
	}
}

// maybeCleanup drops buckets for clients idle longer than a window. Callers
// hold s.mu.
func (s *Service) maybeCleanup(now time.Time) {
	if now.Sub(s.lastCleanup) < cleanupInterval {
		return
	}
	for client, entry := range s.local {
		if now.Sub(entry.lastSeen) > s.window {
			delete(s.local, client)
		}
	}
	s.lastCleanup = now
}
