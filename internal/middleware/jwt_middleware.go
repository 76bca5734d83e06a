package middleware

import (
	"strings"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const userKey = "user"

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// authenticated user is stored in the request locals.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.EqualFold(parts[0], "Bearer")) {
			return unauthorized(c, "Authorization header format must be 'Bearer <token>'")
		}

		user, err := authService.Authenticate(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			if !apperror.Is(err, apperror.Unauthorized) {
				log.Error().Err(err).Msg("failed to authenticate request")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Could not authenticate request",
					"error":   string(apperror.Internal),
				})
			}
			log.Debug().Err(err).Msg("jwt validation failed")
			return unauthorized(c, "Invalid or expired token")
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// RequireVerified rejects users who have not confirmed their email address.
// It must run after AuthRequired.
func RequireVerified() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c, "Authentication required")
		}
		if !user.IsVerified {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message":              "Please verify your email address first",
				"error":                string(apperror.Forbidden),
				"requiresVerification": true,
			})
		}
		return c.Next()
	}
}

// RequireAdmin rejects non-admin users. It must run after AuthRequired.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c, "Authentication required")
		}
		if !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin access required",
				"error":   string(apperror.Forbidden),
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"error":   string(apperror.Unauthorized),
	})
}
