package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	itemHandler *handlers.ItemHandler,
	healthHandler *handlers.HealthHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Reads are public; a token, when sent, unlocks private comments.
	public := []fiber.Handler{middleware.OptionalJWT(cfg), middleware.ResolveActor(cfg)}
	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.ResolveActor(cfg)}

	items := api.Group("/items")
	items.Get("/", append(public, itemHandler.List)...)
	items.Get("/recent", append(public, itemHandler.Recent)...)
	items.Get("/stats", append(public, itemHandler.Stats)...)
	items.Get("/:id", append(public, itemHandler.Get)...)
	items.Get("/:id/candidates", append(public, itemHandler.Candidates)...)
	items.Get("/:id/comments", append(public, itemHandler.Comments)...)
	items.Get("/:id/history", append(public, itemHandler.History)...)
	items.Post("/:id/contact", append(public, itemHandler.RecordContact)...)
	items.Post("/:id/share", append(public, itemHandler.RecordShare)...)

	items.Post("/", append(protected, itemHandler.Create)...)
	items.Patch("/:id", append(protected, itemHandler.Update)...)
	items.Delete("/:id", append(protected, itemHandler.Delete)...)
	items.Post("/:id/matches", append(protected, itemHandler.Match)...)
	items.Post("/:id/matches/:candidateId/verify", append(protected, itemHandler.VerifyMatch)...)
	items.Post("/:id/resolve", append(protected, itemHandler.Resolve)...)
	items.Post("/:id/comments", append(protected, itemHandler.AddComment)...)

	// Moderator tools: a moderator token or the X-Admin-Token header
	admin := api.Group("/admin", middleware.OptionalJWT(cfg), middleware.ResolveActor(cfg), middleware.ModeratorRequired())
	admin.Post("/items/sweep", adminHandler.Sweep)
}
