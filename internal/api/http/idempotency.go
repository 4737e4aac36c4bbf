package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/eventix/pkg/util/errorutil"
)

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

type storedResponse struct {
	pending     bool
	status      int
	contentType string
	body        []byte
}

// IdempotencyStore replays successful POST responses that carry the same
// Idempotency-Key within the TTL.
type IdempotencyStore struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewIdempotencyStore returns a store whose entries expire after ttl.
func NewIdempotencyStore(ttl time.Duration, logger *zap.Logger) *IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyStore{cache: gocache.New(ttl, 2*ttl), logger: logger}
}

// Len returns the number of cached entries, pending ones included.
func (s *IdempotencyStore) Len() int {
	return s.cache.ItemCount()
}

// Middleware is a no-op for requests without the header. Only 2xx responses
// are stored; failures release the key so the client can retry.
func (s *IdempotencyStore) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyHeader)
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLength {
			return apperrors.NewValidationError("Idempotency-Key too long",
				map[string]any{"max_length": maxIdempotencyKeyLength})
		}
		cacheKey := c.Method() + " " + c.Path() + " " + key

		if err := s.cache.Add(cacheKey, storedResponse{pending: true}, gocache.DefaultExpiration); err != nil {
			cached, found := s.cache.Get(cacheKey)
			if !found {
				return apperrors.NewConflict("request with this Idempotency-Key is in progress", nil)
			}
			resp := cached.(storedResponse)
			if resp.pending {
				return apperrors.NewConflict("request with this Idempotency-Key is in progress", nil)
			}
			s.logger.Debug("replaying idempotent response", zap.String("key", key), zap.String("path", c.Path()))
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, resp.contentType)
			return c.Status(resp.status).Send(resp.body)
		}

		// Release the pending entry unless a response was stored, including
		// when the handler panics.
		stored := false
		defer func() {
			if !stored {
				s.cache.Delete(cacheKey)
			}
		}()

		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil || status < http.StatusOK || status >= http.StatusMultipleChoices {
			return err
		}
		body := append([]byte(nil), c.Response().Body()...)
		s.cache.Set(cacheKey, storedResponse{
			status:      status,
			contentType: string(c.Response().Header.ContentType()),
			body:        body,
		}, gocache.DefaultExpiration)
		stored = true
		return nil
	}
}
