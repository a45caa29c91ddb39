package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/volunteer-slot-sync/internal/config"
)

// ReplayHeader is set on responses served from the idempotency store.
const ReplayHeader = "X-Idempotent-Replay"

// pendingMarker occupies a key while the first request for it is running.
// It is shorter than any encoded payload so the two cannot be confused.
const pendingMarker = "pending"

// pendingTTL bounds how long a crashed request can block its key.
const pendingTTL = time.Minute

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if remain := cw.limit - cw.size; cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// idempotencyKey namespaces the caller's key by route.
func idempotencyKey(cfg config.IdempotencyConfig, c echo.Context, callerKey string) string {
    sum := sha1.Sum([]byte(c.Request().Method + " " + c.Path() + ":" + callerKey))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    header = make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, header, bs[8+hlen:], true
}

// storable reports whether a response is kept for replay.  200 and 500 both
// mean the quantity was written, so repeating the request would decrement
// twice; every other status left the table untouched and may be retried.
func storable(status int) bool {
    return status == http.StatusOK || status == http.StatusInternalServerError
}

// NewIdempotency replays stored responses for POST requests that repeat a
// key sent in cfg.Header.  A repeat that arrives while the first request is
// still running receives 409.
func NewIdempotency(cfg config.IdempotencyConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    if logger == nil {
        logger = slog.Default()
    }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            callerKey := strings.TrimSpace(c.Request().Header.Get(cfg.Header))
            if callerKey == "" || c.Request().Method != http.MethodPost {
                return next(c)
            }
            ctx := c.Request().Context()
            key := idempotencyKey(cfg, c, callerKey)

            claimed, err := rdb.SetNX(ctx, key, pendingMarker, pendingTTL).Result()
            if err != nil {
                logger.Warn("idempotency: redis error, serving without dedupe", "err", err)
                return next(c)
            }
            if !claimed {
                return replay(c, rdb, key)
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw

            if err := next(c); err != nil {
                _ = rdb.Del(context.WithoutCancel(ctx), key).Err()
                return err
            }

            bg := context.WithoutCancel(ctx)
            if !storable(cw.status) || (maxBody > 0 && cw.size > maxBody) {
                _ = rdb.Del(bg, key).Err()
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del(echo.HeaderContentLength)
            hdr.Del(echo.HeaderXRequestID)
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err == nil {
                err = rdb.Set(bg, key, payload, cfg.TTL).Err()
            }
            if err != nil {
                logger.Warn("idempotency: store response failed", "err", err)
                _ = rdb.Del(bg, key).Err()
            }
            return nil
        }
    }
}

// replay writes the stored response for key, or 409 while it is pending.
func replay(c echo.Context, rdb *redis.Client, key string) error {
    bs, err := rdb.Get(c.Request().Context(), key).Bytes()
    if err != nil || string(bs) == pendingMarker {
        return c.String(http.StatusConflict, "A request with this idempotency key is still in progress.")
    }
    status, hdr, body, ok := decodePayload(bs)
    if !ok {
        return c.String(http.StatusConflict, "A request with this idempotency key is still in progress.")
    }
    for k, vals := range hdr {
        for _, v := range vals {
            c.Response().Header().Add(k, v)
        }
    }
    c.Response().Header().Set(ReplayHeader, "true")
    c.Response().WriteHeader(status)
    if len(body) > 0 {
        _, _ = c.Response().Write(body)
    }
    return nil
}
