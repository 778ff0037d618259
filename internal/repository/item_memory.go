package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/google/uuid"
)

// MemoryItemRepository keeps items in process memory. It backs tests and the
// STORE_DRIVER=memory development mode. Callers always receive copies.
type MemoryItemRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.LostItem
	now   func() time.Time
}

func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{
		items: make(map[uuid.UUID]*models.LostItem),
		now:   time.Now,
	}
}

func (r *MemoryItemRepository) Create(ctx context.Context, item *models.LostItem) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	now := r.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *MemoryItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.LostItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return item.Clone(), nil
}

func (r *MemoryItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryItemRepository) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.LostItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		if errors.Is(err, ErrNoChange) {
			return stored.Clone(), nil
		}
		return nil, err
	}
	working.ID = id
	working.UpdatedAt = r.now()
	r.items[id] = working
	return working.Clone(), nil
}

func (r *MemoryItemRepository) IncrementCounter(ctx context.Context, id uuid.UUID, counter Counter) error {
	_, err := r.Mutate(ctx, id, func(item *models.LostItem) error {
		switch counter {
		case CounterViews:
			item.Analytics.Views++
		case CounterContacts:
			item.Analytics.Contacts++
		case CounterShares:
			item.Analytics.Shares++
		default:
			return fmt.Errorf("unknown counter %q", counter)
		}
		return nil
	})
	return err
}

func (r *MemoryItemRepository) FindCandidatePool(ctx context.Context, itemType models.ItemType, category string, exclude uuid.UUID, limit int) ([]models.LostItem, error) {
	return r.collect(ctx, limit, func(item *models.LostItem) bool {
		return item.Type == itemType &&
			item.Category == category &&
			item.Status == models.StatusActive &&
			item.ID != exclude
	})
}

func (r *MemoryItemRepository) Search(ctx context.Context, q SearchQuery) ([]models.LostItem, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	terms := searchTerms(q.Text)

	type hit struct {
		item  models.LostItem
		score int
	}

	r.mu.RLock()
	hits := make([]hit, 0, len(r.items))
	for _, item := range r.items {
		if !matchesFilter(item, q.Filter) {
			continue
		}
		score := 0
		if len(terms) > 0 {
			score = textRelevance(item, terms)
			if score == 0 {
				continue
			}
		}
		hits = append(hits, hit{item: *item.Clone(), score: score})
	}
	r.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return newerFirst(&hits[i].item, &hits[j].item)
	})

	total := int64(len(hits))
	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start > len(hits) {
		start = len(hits)
	}
	end := len(hits)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	items := make([]models.LostItem, 0, end-start)
	for _, h := range hits[start:end] {
		items = append(items, h.item)
	}
	return items, total, nil
}

func (r *MemoryItemRepository) Recent(ctx context.Context, itemType models.ItemType, limit int) ([]models.LostItem, error) {
	return r.collect(ctx, limit, func(item *models.LostItem) bool {
		return item.Status == models.StatusActive && (itemType == "" || item.Type == itemType)
	})
}

func (r *MemoryItemRepository) Stats(ctx context.Context) (*ItemStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ItemStats{CategoryBreakdown: []CategoryCount{}}
	byCategory := make(map[string]int64)
	for _, item := range r.items {
		stats.Total++
		switch item.Type {
		case models.ItemTypeLost:
			stats.Lost++
		case models.ItemTypeFound:
			stats.Found++
		}
		switch item.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusMatched:
			stats.Matched++
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusExpired:
			stats.Expired++
		}
		byCategory[item.Category]++
	}
	for category, count := range byCategory {
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(stats.CategoryBreakdown, func(i, j int) bool {
		a, b := stats.CategoryBreakdown[i], stats.CategoryBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	return stats, nil
}

func (r *MemoryItemRepository) ExpireActiveBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired int64
	for _, item := range r.items {
		if item.Status == models.StatusActive && item.CreatedAt.Before(cutoff) {
			item.Status = models.StatusExpired
			item.UpdatedAt = now
			expired++
		}
	}
	return expired, nil
}

func (r *MemoryItemRepository) collect(ctx context.Context, limit int, keep func(*models.LostItem) bool) ([]models.LostItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.RLock()
	items := make([]models.LostItem, 0)
	for _, item := range r.items {
		if keep(item) {
			items = append(items, *item.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return newerFirst(&items[i], &items[j]) })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func matchesFilter(item *models.LostItem, f ItemFilter) bool {
	if f.Type != "" && item.Type != f.Type {
		return false
	}
	if f.Category != "" && item.Category != f.Category {
		return false
	}
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.ReportedBy != nil && item.ReportedBy != *f.ReportedBy {
		return false
	}
	if f.Tag != "" {
		for _, t := range item.Tags {
			if t == f.Tag {
				return true
			}
		}
		return false
	}
	return true
}

func searchTerms(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// textRelevance counts query terms found in the title (weighted double) and description.
func textRelevance(item *models.LostItem, terms []string) int {
	title := strings.ToLower(item.Title)
	description := strings.ToLower(item.Description)
	score := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 2
		}
		if strings.Contains(description, term) {
			score++
		}
	}
	return score
}

func newerFirst(a, b *models.LostItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
