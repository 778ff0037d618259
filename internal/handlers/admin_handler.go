package handlers

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	lifecycle *services.LifecycleService
}

func NewAdminHandler(lifecycle *services.LifecycleService) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle}
}

// Sweep runs the expiry sweep immediately.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	expired, err := h.lifecycle.ExpireStale(c.UserContext(), time.Now())
	if err != nil {
		return respondError(c, err)
	}
	slog.Info("manual expiry sweep", "expired", expired, "actor_id", actor.FromContext(c).UserID, "request_id", requestID(c))
	return c.JSON(dto.SweepResponse{Expired: expired})
}
