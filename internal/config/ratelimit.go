package config

import "time"

// RateLimitConfig controls the Redis token bucket placed in front of every
// route.  The bucket is keyed by client IP and/or route depending on
// KeyStrategy ("ip", "route" or "ip_route").
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.  Out of range values
// are clamped so the limiter can never reject every request.
func LoadRateLimitConfig() RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        rl.RefillTokens = 1
        rl.RefillInterval = every
    }
    if rl.Capacity < 1 {
        rl.Capacity = 1
    }
    if rl.RefillTokens < 1 {
        rl.RefillTokens = 1
    }
    if rl.RefillInterval <= 0 {
        rl.RefillInterval = time.Second
    }
    if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
        rl.TTL = minTTL
    }
    return rl
}
