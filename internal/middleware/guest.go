package middleware

import (
	"strings"

	"storefront/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GuestHeader carries the identity of an anonymous visitor.
const GuestHeader = "X-Guest-ID"

const guestKey = "guest_owner"

// GuestIdentity resolves the X-Guest-ID header. A missing or malformed id is
// replaced with a fresh one, and the id in use is echoed in the response.
func GuestIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		guestID := strings.TrimSpace(c.Get(GuestHeader))
		if _, err := uuid.Parse(guestID); err != nil {
			guestID = uuid.NewString()
		}
		c.Set(GuestHeader, guestID)
		c.Locals(guestKey, models.GuestOwnerID(guestID))
		return c.Next()
	}
}

// GuestOwner returns the cart/wishlist owner id set by GuestIdentity.
func GuestOwner(c *fiber.Ctx) string {
	owner, _ := c.Locals(guestKey).(string)
	return owner
}
