package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/cache"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var moderator = actor.Actor{UserID: uuid.New(), Role: actor.RoleModerator}

type fixture struct {
	repo      *repository.MemoryItemRepository
	cache     *cache.MemoryStatsCache
	items     *ItemService
	matches   *MatchService
	lifecycle *LifecycleService
	ledger    *LedgerService
	search    *SearchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryItemRepository()
	statsCache := cache.NewMemoryStatsCache(time.Minute)
	return &fixture{
		repo:      repo,
		cache:     statsCache,
		items:     NewItemService(repo, statsCache),
		matches:   NewMatchService(repo, statsCache, 0),
		lifecycle: NewLifecycleService(repo, statsCache, LifecycleConfig{RetryBase: time.Millisecond}),
		ledger:    NewLedgerService(repo, NewContentFilter(BannedWords)),
		search:    NewSearchService(repo, statsCache),
	}
}

func newItem(title string, itemType models.ItemType, category, location string) *models.LostItem {
	now := time.Now()
	return &models.LostItem{
		ID:          uuid.New(),
		Title:       title,
		Description: title + " reported on campus",
		Category:    category,
		Type:        itemType,
		Location:    location,
		LastSeen:    now.Add(-time.Hour),
		ReportedBy:  uuid.New(),
		Contact:     models.Contact{Email: "student@campus.edu", PreferredMethod: "email"},
		Status:      models.StatusActive,
		Tags:        pq.StringArray{},
		Priority:    models.PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (f *fixture) seed(t *testing.T, item *models.LostItem) *models.LostItem {
	t.Helper()
	require.NoError(t, f.repo.Create(context.Background(), item))
	return item
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.LostItem {
	t.Helper()
	item, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return item
}
