package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ItemHandler struct {
	items     *services.ItemService
	matches   *services.MatchService
	lifecycle *services.LifecycleService
	ledger    *services.LedgerService
	search    *services.SearchService
}

func NewItemHandler(
	items *services.ItemService,
	matches *services.MatchService,
	lifecycle *services.LifecycleService,
	ledger *services.LedgerService,
	search *services.SearchService,
) *ItemHandler {
	return &ItemHandler{
		items:     items,
		matches:   matches,
		lifecycle: lifecycle,
		ledger:    ledger,
		search:    search,
	}
}

func (h *ItemHandler) respondItem(c *fiber.Ctx, status int, item *models.LostItem) error {
	viewer := actor.FromContext(c)
	return c.Status(status).JSON(dto.NewItemResponse(item, services.VisibleComments(item, viewer), time.Now()))
}

func (h *ItemHandler) itemList(c *fiber.Ctx, items []models.LostItem) []dto.ItemResponse {
	viewer := actor.FromContext(c)
	now := time.Now()
	out := make([]dto.ItemResponse, len(items))
	for i := range items {
		item := &items[i]
		out[i] = dto.NewItemResponse(item, services.VisibleComments(item, viewer), now)
	}
	return out
}

// List serves GET /items: free-text search plus filters, paginated.
func (h *ItemHandler) List(c *fiber.Ctx) error {
	filter := repository.ItemFilter{
		Type:     models.ItemType(c.Query("type")),
		Category: c.Query("category"),
		Status:   models.ItemStatus(c.Query("status")),
		Tag:      c.Query("tag"),
	}
	if raw := c.Query("reportedBy"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(c, "Invalid reportedBy")
		}
		filter.ReportedBy = &id
	}

	page, err := h.search.Search(c.UserContext(), services.SearchParams{
		Text:   c.Query("q"),
		Filter: filter,
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", services.DefaultPageLimit),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(dto.ItemListResponse{
		Items:      h.itemList(c, page.Items),
		Pagination: dto.NewPagination(page.Page, page.Limit, page.Total),
		Degraded:   page.Degraded,
	})
}

func (h *ItemHandler) Recent(c *fiber.Ctx) error {
	items, degraded, err := h.search.Recent(c.UserContext(), models.ItemType(c.Query("type")), c.QueryInt("limit", services.DefaultRecentLimit))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.RecentResponse{Items: h.itemList(c, items), Degraded: degraded})
}

func (h *ItemHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.search.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// Get serves GET /items/:id and counts the view.
func (h *ItemHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	item, err := h.items.View(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondItem(c, fiber.StatusOK, item)
}

func (h *ItemHandler) Create(c *fiber.Ctx) error {
	a, ok := caller(c)
	if !ok || a.UserID == uuid.Nil {
		return unauthorized(c)
	}

	var req dto.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.items.Create(c.UserContext(), a.UserID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondItem(c, fiber.StatusCreated, item)
}

func (h *ItemHandler) Update(c *fiber.Ctx) error {
	a, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	var req dto.UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.items.Update(c.UserContext(), a, id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondItem(c, fiber.StatusOK, item)
}

func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	a, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	if err := h.items.Delete(c.UserContext(), a, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Item deleted successfully"})
}

// Candidates is a dry run of the matcher; nothing is recorded.
func (h *ItemHandler) Candidates(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	candidates, err := h.matches.FindCandidates(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"itemId": id, "candidates": candidates})
}

// Match records matches. With a candidateId in the body it records that one
// candidate at the given score; with an empty body it runs the matcher and
// records every new candidate.
func (h *ItemHandler) Match(c *fiber.Ctx) error {
	a, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	var req dto.MatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	if req.CandidateID == uuid.Nil {
		item, candidates, err := h.matches.RunMatching(c.UserContext(), a, id)
		if err != nil {
			return respondError(c, err)
		}
		viewer := actor.FromContext(c)
		return c.JSON(fiber.Map{
			"item":       dto.NewItemResponse(item, services.VisibleComments(item, viewer), time.Now()),
			"candidates": candidates,
		})
	}

	if req.Score == nil {
		return respondError(c, &services.ValidationError{Fields: []services.FieldError{
			{Field: "score", Message: "is required"},
		}})
	}
	item, err := h.matches.AddMatch(c.UserContext(), a, id, req.CandidateID, *req.Score)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondItem(c, fiber.StatusOK, item)
}

func (h *ItemHandler) VerifyMatch(c *fiber.Ctx) error {
	a, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	candidateID, err := paramID(c, "candidateId")
	if err != nil {
		return badRequest(c, "Invalid candidate ID")
	}

	var req dto.VerifyMatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	item, err := h.lifecycle.VerifyMatch(c.UserContext(), a, id, candidateID, req.Method)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondItem(c, fiber.StatusOK, item)
}

func (h *ItemHandler) Resolve(c *fiber.Ctx) error {
	a, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	var req dto.ResolveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	item, err := h.lifecycle.MarkResolved(c.UserContext(), a, id, req.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return h.respondItem(c, fiber.StatusOK, item)
}

func (h *ItemHandler) AddComment(c *fiber.Ctx) error {
	a, ok := caller(c)
	if !ok || a.UserID == uuid.Nil {
		return unauthorized(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	comment, err := h.ledger.AddComment(c.UserContext(), a.UserID, id, req.Text, req.IsPrivate)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *ItemHandler) Comments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	item, err := h.items.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CommentListResponse{
		Comments: services.VisibleComments(item, actor.FromContext(c)),
	})
}

func (h *ItemHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	item, err := h.items.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"itemId":  id,
		"entries": services.History(item, actor.FromContext(c)),
	})
}

func (h *ItemHandler) RecordContact(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	if err := h.items.RecordContact(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ItemHandler) RecordShare(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid item ID")
	}
	if err := h.items.RecordShare(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
