package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/domain/shared"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Idempotency headers
const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotency-Replayed"
	maxIdempotencyKeyLength   = 128
)

// IdempotencyStats counts how requests carrying a key were handled
type IdempotencyStats struct {
	Processed  atomic.Int64
	Replayed   atomic.Int64
	InProgress atomic.Int64
	Released   atomic.Int64
}

// IdempotencyConfig configures the idempotency middleware
type IdempotencyConfig struct {
	Store  shared.IdempotencyStore
	Config shared.IdempotencyConfig
	Logger *zap.Logger
	Stats  *IdempotencyStats
}

// storedResponse is what a completed key replays
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// captureWriter tees the response body so it can be stored under the key
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes a mutating route safe to retry. A request carrying an
// Idempotency-Key header is executed at most once per actor, path and key:
// a repeat of a finished request replays the stored response, a repeat of a
// request still running gets 409. Server errors release the key so the
// client may retry. Requests without the header pass straight through, and
// store failures fall back to executing the request.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Stats == nil {
		cfg.Stats = &IdempotencyStats{}
	}

	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if !cfg.Config.Enabled || cfg.Store == nil || header == "" {
			c.Next()
			return
		}
		if len(header) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key must be at most 128 characters", RequestIDFrom(c)))
			return
		}

		ctx := c.Request.Context()
		key := idempotencyKey(c, header)
		log := cfg.Logger.With(zap.String("idempotency_key", header), zap.String("path", c.Request.URL.Path))

		stored, found, err := cfg.Store.Lookup(ctx, key)
		if err != nil {
			log.Warn("Idempotency lookup failed, processing anyway", zap.Error(err))
			c.Next()
			return
		}
		if found {
			replayOrReject(c, cfg.Stats, stored, log)
			return
		}

		claimed, err := cfg.Store.Claim(ctx, key, cfg.Config.TTL)
		if err != nil {
			log.Warn("Idempotency claim failed, processing anyway", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			cfg.Stats.InProgress.Add(1)
			rejectInProgress(c)
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			cfg.Stats.Released.Add(1)
			if err := cfg.Store.Release(ctx, key); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}

		payload, err := json.Marshal(storedResponse{Status: status, Body: writer.body.Bytes()})
		if err == nil {
			err = cfg.Store.Complete(ctx, key, payload, cfg.Config.TTL)
		}
		if err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
			if err := cfg.Store.Release(ctx, key); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}
		cfg.Stats.Processed.Add(1)
	}
}

// idempotencyKey scopes the client's key to the actor and the request path
func idempotencyKey(c *gin.Context, header string) string {
	actor := "anonymous"
	if a, ok := GetActor(c); ok {
		actor = a.Label()
	}
	return actor + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + header
}

func replayOrReject(c *gin.Context, stats *IdempotencyStats, stored []byte, log *zap.Logger) {
	if stored == nil {
		stats.InProgress.Add(1)
		rejectInProgress(c)
		return
	}

	var resp storedResponse
	if err := json.Unmarshal(stored, &resp); err != nil {
		log.Error("Corrupt idempotent response", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "An unexpected error occurred", RequestIDFrom(c)))
		return
	}

	stats.Replayed.Add(1)
	c.Header(IdempotencyReplayedHeader, "true")
	c.Data(resp.Status, "application/json; charset=utf-8", resp.Body)
	c.Abort()
}

func rejectInProgress(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeRequestInProgress, "A request with this Idempotency-Key is still being processed", RequestIDFrom(c)))
}
