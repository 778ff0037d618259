package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/cache"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
)

const (
	DefaultPageLimit   = 20
	MaxPageLimit       = 50
	DefaultRecentLimit = 10

	// MaxPage keeps (page-1)*limit inside int for every allowed limit.
	MaxPage = math.MaxInt / MaxPageLimit
)

type SearchParams struct {
	Text   string
	Filter repository.ItemFilter
	Page   int
	Limit  int
}

// Page is a slice of search results. Degraded is set when the store could not
// answer and the empty result stands in for the real one.
type Page struct {
	Items    []models.LostItem
	Total    int64
	Page     int
	Limit    int
	Degraded bool
}

type SearchService struct {
	repo  repository.ItemRepository
	cache cache.StatsCache
}

func NewSearchService(repo repository.ItemRepository, statsCache cache.StatsCache) *SearchService {
	return &SearchService{repo: repo, cache: statsCache}
}

func (s *SearchService) Search(ctx context.Context, p SearchParams) (*Page, error) {
	page, limit := clampPage(p.Page, p.Limit, DefaultPageLimit)
	if err := validateFilter(p.Filter); err != nil {
		return nil, err
	}

	items, total, err := s.repo.Search(ctx, repository.SearchQuery{
		Text:   strings.TrimSpace(p.Text),
		Filter: p.Filter,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			slog.Warn("search degraded", "error", err)
			return &Page{Items: []models.LostItem{}, Page: page, Limit: limit, Degraded: true}, nil
		}
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Recent lists active items newest first. An unavailable store yields an empty degraded list.
func (s *SearchService) Recent(ctx context.Context, itemType models.ItemType, limit int) ([]models.LostItem, bool, error) {
	if itemType != "" && itemType.Opposite() == "" {
		return nil, false, fieldError("type", "must be one of: lost, found")
	}
	_, limit = clampPage(1, limit, DefaultRecentLimit)

	items, err := s.repo.Recent(ctx, itemType, limit)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			slog.Warn("recent items degraded", "error", err)
			return []models.LostItem{}, true, nil
		}
		return nil, false, err
	}
	return items, false, nil
}

// Stats serves the cached aggregates, recomputing them after an invalidation.
// A snapshot computed across a concurrent write is returned but not cached.
func (s *SearchService) Stats(ctx context.Context) (*repository.ItemStats, error) {
	if stats, ok := s.cache.Get(ctx); ok {
		return stats, nil
	}
	generation := s.cache.Generation(ctx)
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, generation, stats)
	return stats, nil
}

func clampPage(page, limit, fallback int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func validateFilter(f repository.ItemFilter) error {
	verr := &ValidationError{}
	if f.Type != "" && f.Type.Opposite() == "" {
		verr.add("type", "must be one of: lost, found")
	}
	if f.Status != "" && !f.Status.Valid() {
		verr.add("status", "must be one of: active, matched, resolved, expired")
	}
	if f.Category != "" && !validCategory(f.Category) {
		verr.add("category", "is not a known category")
	}
	return verr.orNil()
}

func validCategory(c string) bool {
	for _, known := range models.ItemCategories {
		if known == c {
			return true
		}
	}
	return false
}
