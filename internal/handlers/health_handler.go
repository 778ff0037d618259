package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// PingFunc checks one backing service.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	store PingFunc
	cache PingFunc
}

// NewHealthHandler takes optional pings; a nil ping reports "disabled".
func NewHealthHandler(store, cache PingFunc) *HealthHandler {
	return &HealthHandler{store: store, cache: cache}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Store:     ping(ctx, h.store),
		Cache:     ping(ctx, h.cache),
	}
	if resp.Store != "ok" && resp.Store != "disabled" {
		resp.Status = "degraded"
	}
	return c.JSON(resp)
}

func ping(ctx context.Context, fn PingFunc) string {
	if fn == nil {
		return "disabled"
	}
	if err := fn(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "ok"
}
