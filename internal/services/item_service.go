package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/cache"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ItemService struct {
	repo     repository.ItemRepository
	cache    cache.StatsCache
	validate *validator.Validate
	now      func() time.Time
}

func NewItemService(repo repository.ItemRepository, statsCache cache.StatsCache) *ItemService {
	return &ItemService{
		repo:     repo,
		cache:    statsCache,
		validate: newValidator(),
		now:      time.Now,
	}
}

func (s *ItemService) Create(ctx context.Context, reporterID uuid.UUID, req *dto.CreateItemRequest) (*models.LostItem, error) {
	if reporterID == uuid.Nil {
		return nil, fieldError("reportedBy", "is required")
	}
	normalizeCreate(req)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	now := s.now()
	item := &models.LostItem{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Type:        models.ItemType(req.Type),
		Location:    req.Location,
		LastSeen:    *req.LastSeen,
		ReportedBy:  reporterID,
		Contact: models.Contact{
			Email:           req.Contact.Email,
			Phone:           req.Contact.Phone,
			PreferredMethod: req.Contact.PreferredMethod,
		},
		Images:          buildImages(req.Images, now),
		Characteristics: buildCharacteristics(&req.Characteristics),
		Status:          models.StatusActive,
		Matches:         datatypes.JSONSlice[models.Match]{},
		Comments:        datatypes.JSONSlice[models.Comment]{},
		Tags:            pq.StringArray(req.Tags),
		Priority:        models.Priority(req.Priority),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.cache.Invalidate(ctx)

	slog.Info("item reported", "item_id", item.ID, "type", item.Type, "category", item.Category)
	return item, nil
}

func (s *ItemService) Get(ctx context.Context, id uuid.UUID) (*models.LostItem, error) {
	return s.repo.FindByID(ctx, id)
}

// View returns the item and counts the read. A failed counter write does not fail the read.
func (s *ItemService) View(ctx context.Context, id uuid.UUID) (*models.LostItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementCounter(ctx, id, repository.CounterViews); err != nil {
		slog.Warn("failed to record item view", "item_id", id, "error", err)
	} else {
		item.Analytics.Views++
	}
	return item, nil
}

func (s *ItemService) Update(ctx context.Context, caller actor.Actor, id uuid.UUID, req *dto.UpdateItemRequest) (*models.LostItem, error) {
	normalizeUpdate(req)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	now := s.now()
	item, err := s.repo.Mutate(ctx, id, func(item *models.LostItem) error {
		if !caller.CanManage(item.ReportedBy) {
			return ErrForbidden
		}
		if item.IsTerminal() {
			return fmt.Errorf("item is %s: %w", item.Status, ErrInvalidState)
		}
		if item.Status == models.StatusMatched {
			if req.Type != nil && models.ItemType(*req.Type) != item.Type {
				return fmt.Errorf("type cannot change once matched: %w", ErrInvalidState)
			}
			if req.Category != nil && *req.Category != item.Category {
				return fmt.Errorf("category cannot change once matched: %w", ErrInvalidState)
			}
		}
		applyUpdate(item, req, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, caller actor.Actor, id uuid.UUID) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanManage(item.ReportedBy) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)

	slog.Info("item deleted", "item_id", id, "actor_id", caller.UserID)
	return nil
}

func (s *ItemService) RecordContact(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementCounter(ctx, id, repository.CounterContacts)
}

func (s *ItemService) RecordShare(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementCounter(ctx, id, repository.CounterShares)
}

func normalizeCreate(req *dto.CreateItemRequest) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(strings.ToLower(req.Category))
	req.Type = strings.TrimSpace(strings.ToLower(req.Type))
	req.Location = strings.TrimSpace(req.Location)
	req.Contact.Email = strings.TrimSpace(strings.ToLower(req.Contact.Email))
	req.Contact.Phone = strings.TrimSpace(req.Contact.Phone)
	if req.Contact.PreferredMethod == "" {
		req.Contact.PreferredMethod = "email"
	}
	if req.Priority == "" {
		req.Priority = string(models.PriorityMedium)
	}
	req.Tags = normalizeTags(req.Tags)
}

func normalizeUpdate(req *dto.UpdateItemRequest) {
	for _, field := range []*string{req.Title, req.Description, req.Location} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if req.Category != nil {
		*req.Category = strings.TrimSpace(strings.ToLower(*req.Category))
	}
	if req.Type != nil {
		*req.Type = strings.TrimSpace(strings.ToLower(*req.Type))
	}
	if req.Contact != nil {
		req.Contact.Email = strings.TrimSpace(strings.ToLower(req.Contact.Email))
		req.Contact.Phone = strings.TrimSpace(req.Contact.Phone)
		if req.Contact.PreferredMethod == "" {
			req.Contact.PreferredMethod = "email"
		}
	}
	if req.Tags != nil {
		tags := normalizeTags(*req.Tags)
		req.Tags = &tags
	}
}

// normalizeTags trims and lower-cases tags, dropping blanks and duplicates.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func buildImages(reqs []dto.ImageRequest, now time.Time) datatypes.JSONSlice[models.Image] {
	images := make(datatypes.JSONSlice[models.Image], 0, len(reqs))
	for _, r := range reqs {
		images = append(images, models.Image{
			URL:        strings.TrimSpace(r.URL),
			Caption:    strings.TrimSpace(r.Caption),
			UploadedAt: now,
		})
	}
	return images
}

func buildCharacteristics(r *dto.CharacteristicsRequest) models.Characteristics {
	features := make(pq.StringArray, 0, len(r.DistinguishingFeatures))
	for _, f := range r.DistinguishingFeatures {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	return models.Characteristics{
		Color:                  strings.TrimSpace(r.Color),
		Brand:                  strings.TrimSpace(r.Brand),
		Model:                  strings.TrimSpace(r.Model),
		Size:                   strings.TrimSpace(r.Size),
		DistinguishingFeatures: features,
	}
}

func applyUpdate(item *models.LostItem, req *dto.UpdateItemRequest, now time.Time) {
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Type != nil {
		item.Type = models.ItemType(*req.Type)
	}
	if req.Location != nil {
		item.Location = *req.Location
	}
	if req.LastSeen != nil {
		item.LastSeen = *req.LastSeen
	}
	if req.Contact != nil {
		item.Contact = models.Contact{
			Email:           req.Contact.Email,
			Phone:           req.Contact.Phone,
			PreferredMethod: req.Contact.PreferredMethod,
		}
	}
	if req.Characteristics != nil {
		item.Characteristics = buildCharacteristics(req.Characteristics)
	}
	if req.Images != nil {
		item.Images = buildImages(*req.Images, now)
	}
	if req.Tags != nil {
		item.Tags = pq.StringArray(*req.Tags)
	}
	if req.Priority != nil {
		item.Priority = models.Priority(*req.Priority)
	}
}
