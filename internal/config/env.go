package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// envStr returns the variable k or d when it is unset or empty.
func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

// envBool accepts the usual spellings of true/false and falls back to d for
// anything else.
func envBool(k string, d bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
