package http

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"qtumor/internal/config"
)

// authMiddleware validates the Authorization: Bearer <key> header against
// the configured static API keys and attaches the key to the context as
// "apiKey".
func authMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Auth.Enabled {
			return c.Next()
		}

		rawAuth := c.Get("Authorization")
		if rawAuth == "" || !strings.HasPrefix(rawAuth, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Success: false,
				Code:    "UNAUTHENTICATED",
				Error:   "Missing Authorization Bearer token",
			})
		}

		token := strings.TrimSpace(strings.TrimPrefix(rawAuth, "Bearer "))
		for _, key := range cfg.Auth.APIKeys {
			if key != "" && subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
				c.Locals("apiKey", token)
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "UNAUTHENTICATED",
			Error:   "Invalid API key",
		})
	}
}

// rateLimitMiddleware enforces a simple per-minute fixed-window rate limit
// per API key using Redis. Without auth, clients are keyed by IP.
func rateLimitMiddleware(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := cfg.RateLimit.DefaultPerMinute
		if limit <= 0 {
			return c.Next()
		}

		subject := c.IP()
		if key, ok := c.Locals("apiKey").(string); ok && key != "" {
			subject = hashAPIKey(key)
		}
		key := rateLimitKey(subject, time.Now())

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    "INTERNAL_ERROR",
				Error:   fmt.Sprintf("rate limit increment failed: %v", err),
			})
		}
		if count == 1 {
			// First hit in this window; set TTL
			_ = rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Code:    "RATE_LIMIT_EXCEEDED",
				Error:   "Rate limit exceeded, try again later",
			})
		}

		return c.Next()
	}
}

// hashAPIKey keeps raw API keys out of Redis key names.
func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func rateLimitKey(subject string, now time.Time) string {
	window := now.UTC().Format("200601021504") // YYYYMMDDHHMM minute window
	return fmt.Sprintf("qtumor:rl:%s:%s", subject, window)
}
