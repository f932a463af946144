package api

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode   string // "jwt" or "none"
	Secret string // HMAC signing secret for jwt mode
}

const userIDLocal = "user_id"

// NewAuthMiddleware returns a Fiber middleware that resolves the
// authenticated user. In jwt mode the bearer token's `sub` claim is the user
// key for every timer operation; in none mode (local development) the
// X-User-ID header is trusted instead.
func NewAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Probe endpoints stay open
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}

		if cfg.Mode == "none" {
			userID := c.Get("X-User-ID")
			if userID == "" {
				return problemResponse(c, fiber.StatusUnauthorized,
					"missing_user", "Unauthorized",
					"X-User-ID header is required in auth mode none")
			}
			c.Locals(userIDLocal, userID)
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		raw := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		})

		if err != nil || !token.Valid {
			logger.Warn().
				Err(err).
				Str("path", path).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid token")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized",
				"Invalid or expired token")
		}

		if claims.Subject == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_subject", "Unauthorized",
				"Token is missing the sub claim")
		}

		c.Locals(userIDLocal, claims.Subject)
		return c.Next()
	}
}

// userID extracts the authenticated user set by the auth middleware.
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
