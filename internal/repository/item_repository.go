package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrUnavailable = errors.New("item store unavailable")
)

// MutateFunc edits a working copy of an item. Returning an error aborts the write
// and leaves the stored item untouched. Returning ErrNoChange skips the write.
type MutateFunc func(item *models.LostItem) error

// ErrNoChange lets a MutateFunc report that nothing needs persisting.
var ErrNoChange = errors.New("no change")

type Counter string

const (
	CounterViews    Counter = "views"
	CounterContacts Counter = "contacts"
	CounterShares   Counter = "shares"
)

type ItemFilter struct {
	Type       models.ItemType
	Category   string
	Status     models.ItemStatus
	ReportedBy *uuid.UUID
	Tag        string
}

type SearchQuery struct {
	Text   string
	Filter ItemFilter
	Limit  int
	Offset int
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type ItemStats struct {
	Total             int64           `json:"totalItems"`
	Lost              int64           `json:"lostItems"`
	Found             int64           `json:"foundItems"`
	Active            int64           `json:"activeItems"`
	Matched           int64           `json:"matchedItems"`
	Resolved          int64           `json:"resolvedItems"`
	Expired           int64           `json:"expiredItems"`
	CategoryBreakdown []CategoryCount `json:"categoryBreakdown"`
}

// ItemRepository is the persistence collaborator for lost & found items.
// Every method bounds its own wait; a store that cannot answer in time
// returns ErrUnavailable.
type ItemRepository interface {
	Create(ctx context.Context, item *models.LostItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LostItem, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Mutate performs an atomic read-modify-write of a single item.
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.LostItem, error)

	IncrementCounter(ctx context.Context, id uuid.UUID, counter Counter) error

	// FindCandidatePool lists active items of the given type and category, newest first.
	FindCandidatePool(ctx context.Context, itemType models.ItemType, category string, exclude uuid.UUID, limit int) ([]models.LostItem, error)

	Search(ctx context.Context, q SearchQuery) ([]models.LostItem, int64, error)
	Recent(ctx context.Context, itemType models.ItemType, limit int) ([]models.LostItem, error)
	Stats(ctx context.Context) (*ItemStats, error)

	// ExpireActiveBefore moves active items created before cutoff to expired.
	ExpireActiveBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
}
