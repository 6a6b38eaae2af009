package auth

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"racehub_backend/internals/constants"
)

func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	s, _ := c.Locals(LocUserID).(string)
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: missing user information")
	}
	return id, nil
}

func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(LocRoles).([]string)
	return roles
}

func HasRole(c *fiber.Ctx, wanted ...string) bool {
	for _, r := range Roles(c) {
		for _, w := range wanted {
			if r == w {
				return true
			}
		}
	}
	return false
}

// RequireOwnerOrAdmin allows the resource owner or any admin role.
func RequireOwnerOrAdmin(c *fiber.Ctx, ownerID uuid.UUID, feature string) error {
	uid, err := UserID(c)
	if err != nil {
		return err
	}
	if uid == ownerID || HasRole(c, constants.AdminRoles...) {
		return nil
	}
	log.Printf("[WARN] forbidden: user=%s roles=%v owner=%s feature=%s", uid, Roles(c), ownerID, feature)
	return fiber.NewError(fiber.StatusForbidden, constants.RoleErrorOwnerOrAdmin(feature))
}

// OnlyRoles guards a route group by role.
func OnlyRoles(customMessage string, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals(LocRoles) == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: missing role information")
		}
		if HasRole(c, roles...) {
			return c.Next()
		}
		if customMessage == "" {
			customMessage = "Forbidden: you are not authorized to access this resource"
		}
		return fiber.NewError(fiber.StatusForbidden, customMessage)
	}
}
