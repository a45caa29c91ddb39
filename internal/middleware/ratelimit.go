package middleware

import (
    "fmt"
    "log/slog"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/volunteer-slot-sync/internal/config"
)

// limiterScript refills the bucket by whole intervals, takes one token if
// available and reports {allowed, remaining, retry_after_ms}.
var limiterScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// NewTokenBucket limits requests per key with a Redis token bucket.  Redis
// errors fail open: the request is served and the error logged at debug.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if logger == nil {
        logger = slog.Default()
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            args := []interface{}{
                time.Now().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL / time.Second),
            }

            vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
            if err != nil {
                logger.Debug("ratelimit: redis error", "key", key, "err", err)
                return next(c)
            }
            arr, ok := vals.([]interface{})
            if !ok || len(arr) != 3 {
                logger.Debug("ratelimit: unexpected script result", "key", key, "result", fmt.Sprintf("%#v", vals))
                return next(c)
            }
            allowed := asInt64(arr[0]) == 1
            remaining := asInt64(arr[1])
            retryMs := asInt64(arr[2])

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }

            if !allowed {
                secs := int(math.Ceil(float64(retryMs) / 1000.0))
                if secs < 0 {
                    secs = 0
                }
                h.Set("Retry-After", strconv.Itoa(secs))
                logger.Info("ratelimit: blocked", "key", key, "retry_ms", retryMs)
                return c.String(http.StatusTooManyRequests, "Too many requests, retry in "+strconv.Itoa(secs)+"s.")
            }
            return next(c)
        }
    }
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}

// buildRateKey composes prefix:ip:<ip>:route:<method path> per strategy.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "route":
        parts = append(parts, "route", route)
    default: // "ip_route"
        parts = append(parts, "ip", ip, "route", route)
    }
    return strings.Join(parts, ":")
}
