package config

import (
    "net/http"
    "time"
)

// RowLockConfig defines the per-row mutex taken around a slot decrement.
// When Enabled is false or no Redis client is configured, concurrent
// invocations on the same row are not serialized.  TTL bounds how long a
// crashed holder can block the row; Wait bounds how long a request polls
// before giving up.
type RowLockConfig struct {
    Enabled bool
    TTL     time.Duration
    Wait    time.Duration
    Prefix  string
}

// LoadRowLockConfig reads the ROW_LOCK_* variables.
func LoadRowLockConfig() RowLockConfig {
    c := RowLockConfig{
        Enabled: envBool("ROW_LOCK_ENABLED", true),
        TTL:     envDur("ROW_LOCK_TTL", 15*time.Second),
        Wait:    envDur("ROW_LOCK_WAIT", 5*time.Second),
        Prefix:  envStr("ROW_LOCK_PREFIX", "slotlock"),
    }
    if c.TTL <= 0 {
        c.TTL = 15 * time.Second
    }
    if c.Wait < 0 {
        c.Wait = 0
    }
    return c
}

// lockMargin is added on top of the longest run a lock has to cover.  It
// leaves room for the audit and event writes done while the lock is held.
const lockMargin = 10 * time.Second

// Covering returns c with TTL raised to outlast a run of up to run.  A TTL
// shorter than the run lets the lock expire while a row is being
// rewritten.  A zero run leaves c unchanged.
func (c RowLockConfig) Covering(run time.Duration) RowLockConfig {
    if run <= 0 {
        return c
    }
    if minTTL := run + lockMargin; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}

// IdempotencyConfig defines the response replay store for /updateSlot.
// Header names the request header carrying the caller's key; requests
// without it are never deduplicated.  MaxBodyBytes caps the stored body.
type IdempotencyConfig struct {
    Enabled      bool
    Header       string
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadIdempotencyConfig reads the IDEMPOTENCY_* variables.
func LoadIdempotencyConfig() IdempotencyConfig {
    c := IdempotencyConfig{
        Enabled:      envBool("IDEMPOTENCY_ENABLED", true),
        Header:       http.CanonicalHeaderKey(envStr("IDEMPOTENCY_HEADER", "Idempotency-Key")),
        TTL:          envDur("IDEMPOTENCY_TTL", 24*time.Hour),
        Prefix:       envStr("IDEMPOTENCY_PREFIX", "idem"),
        MaxBodyBytes: envInt("IDEMPOTENCY_MAX_BODY_BYTES", 64*1024),
    }
    if c.TTL <= 0 {
        c.TTL = 24 * time.Hour
    }
    return c
}
