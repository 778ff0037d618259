package actor

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
)

const localsKey = "actor"

var ErrNoActor = errors.New("no authenticated caller")

// Actor is the caller an operation runs on behalf of. The zero value is anonymous.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsModerator() bool {
	return a.Role == RoleModerator
}

// CanManage reports whether the caller may act as the owner of an item reported by owner.
func (a Actor) CanManage(owner uuid.UUID) bool {
	if a.IsModerator() {
		return true
	}
	return a.UserID != uuid.Nil && a.UserID == owner
}

// Store attaches the resolved actor to the request.
func Store(c *fiber.Ctx, a Actor) {
	c.Locals(localsKey, a)
}

// FromContext returns the actor resolved by middleware, or the anonymous actor.
func FromContext(c *fiber.Ctx) Actor {
	if a, ok := c.Locals(localsKey).(Actor); ok {
		return a
	}
	return Actor{}
}

// Require returns the actor or ErrNoActor when the request carries no identity.
func Require(c *fiber.Ctx) (Actor, error) {
	a := FromContext(c)
	if a.UserID == uuid.Nil && !a.IsModerator() {
		return Actor{}, ErrNoActor
	}
	return a, nil
}

// UserIDFromToken extracts the subject UUID from the verified JWT in context.
func UserIDFromToken(c *fiber.Ctx) (uuid.UUID, jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, claims, errors.New("missing sub claim")
	}

	id, err := uuid.Parse(sub)
	return id, claims, err
}
