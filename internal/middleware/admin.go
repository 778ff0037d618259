package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ResolveActor turns the verified token (if any) into an actor.Actor. Moderators are
// recognised by:
// 1. Config-based admin token header
// 2. Config-based moderator user IDs
// 3. The role claim issued by the auth service
func ResolveActor(cfg *config.Config) fiber.Handler {
	moderatorIDs := parseCSV(cfg.ModeratorUserIDs)

	return func(c *fiber.Ctx) error {
		a := actor.Actor{Role: actor.RoleMember}

		if _, ok := c.Locals("user").(*jwt.Token); ok {
			userID, claims, err := actor.UserIDFromToken(c)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Error: true, Message: "Invalid claims",
				})
			}
			a.UserID = userID

			role, _ := claims["role"].(string)
			if role == "moderator" || role == "admin" || contains(moderatorIDs, userID.String()) {
				a.Role = actor.RoleModerator
			}
		}

		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			a.Role = actor.RoleModerator
		}

		actor.Store(c, a)
		return c.Next()
	}
}

// ModeratorRequired must run after ResolveActor.
func ModeratorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !actor.FromContext(c).IsModerator() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Moderator access required",
			})
		}
		return c.Next()
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
