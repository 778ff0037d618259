package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/cache"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRepo fails the first `failures` writes to one item with ErrUnavailable.
type flakyRepo struct {
	*repository.MemoryItemRepository
	mu       sync.Mutex
	target   uuid.UUID
	failures int
}

func (r *flakyRepo) Mutate(ctx context.Context, id uuid.UUID, fn repository.MutateFunc) (*models.LostItem, error) {
	r.mu.Lock()
	if id == r.target && r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: connection reset", repository.ErrUnavailable)
	}
	r.mu.Unlock()
	return r.MemoryItemRepository.Mutate(ctx, id, fn)
}

func (r *flakyRepo) setFailures(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
}

func matchedPair(t *testing.T, f *fixture) (*models.LostItem, *models.LostItem) {
	t.Helper()
	lost := f.seed(t, newItem("Wallet", models.ItemTypeLost, "accessories", "Gym"))
	found := f.seed(t, newItem("Wallet", models.ItemTypeFound, "accessories", "Gym"))
	_, err := f.matches.AddMatch(context.Background(), moderator, lost.ID, found.ID, 80)
	require.NoError(t, err)
	_, err = f.matches.AddMatch(context.Background(), moderator, found.ID, lost.ID, 80)
	require.NoError(t, err)
	return lost, found
}

func TestLifecycle_VerifyResolvesBothItems(t *testing.T) {
	f := newFixture(t)
	lost, found := matchedPair(t, f)

	item, err := f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, found.ID, "meeting")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, item.Status)
	assert.True(t, item.IsResolved)
	assert.True(t, item.Matches[0].IsVerified)
	assert.Equal(t, moderator.UserID, *item.Matches[0].VerifiedBy)
	assert.Equal(t, models.VerifyByMeeting, item.Verification.Method)

	counterpart := f.reload(t, found.ID)
	assert.Equal(t, models.StatusResolved, counterpart.Status)
	assert.True(t, counterpart.IsResolved)
	assert.NotNil(t, counterpart.ResolvedAt)
	assert.True(t, counterpart.Matches[0].IsVerified)
	assert.Contains(t, counterpart.ResolutionNotes, lost.ID.String())
}

func TestLifecycle_VerifyAgainIsNoOp(t *testing.T) {
	f := newFixture(t)
	lost, found := matchedPair(t, f)

	first, err := f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, found.ID, "")
	require.NoError(t, err)
	second, err := f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, found.ID, "")
	require.NoError(t, err)

	assert.Equal(t, first.ResolvedAt, second.ResolvedAt)
	assert.Equal(t, models.StatusResolved, f.reload(t, found.ID).Status)
}

func TestLifecycle_VerifyFailures(t *testing.T) {
	f := newFixture(t)
	lost, found := matchedPair(t, f)

	_, err := f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, found.ID, "telepathy")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.lifecycle.MarkResolved(context.Background(), moderator, lost.ID, "")
	require.NoError(t, err)
	_, err = f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrInvalidState)

	expired := newItem("Hat", models.ItemTypeLost, "clothing", "Gym")
	expired.Status = models.StatusExpired
	expired.Matches = append(expired.Matches, models.Match{Item: found.ID, MatchScore: 40, MatchedAt: time.Now()})
	f.seed(t, expired)
	_, err = f.lifecycle.VerifyMatch(context.Background(), moderator, expired.ID, found.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLifecycle_VerifyRetriesCounterpartWrite(t *testing.T) {
	repo := &flakyRepo{MemoryItemRepository: repository.NewMemoryItemRepository()}
	statsCache := cache.NewMemoryStatsCache(time.Minute)
	f := &fixture{
		repo:      repo.MemoryItemRepository,
		matches:   NewMatchService(repo, statsCache, 0),
		lifecycle: NewLifecycleService(repo, statsCache, LifecycleConfig{RetryBase: time.Millisecond, RetryAttempts: 3}),
	}
	lost, found := matchedPair(t, f)
	repo.target = found.ID

	repo.setFailures(2)
	_, err := f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, found.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, f.reload(t, found.ID).Status)
}

func TestLifecycle_VerifyCascadeResumesAfterOutage(t *testing.T) {
	repo := &flakyRepo{MemoryItemRepository: repository.NewMemoryItemRepository()}
	statsCache := cache.NewMemoryStatsCache(time.Minute)
	f := &fixture{
		repo:      repo.MemoryItemRepository,
		matches:   NewMatchService(repo, statsCache, 0),
		lifecycle: NewLifecycleService(repo, statsCache, LifecycleConfig{RetryBase: time.Millisecond, RetryAttempts: 2}),
	}
	lost, found := matchedPair(t, f)
	repo.target = found.ID

	repo.setFailures(10)
	_, err := f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, found.ID, "")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, models.StatusResolved, f.reload(t, lost.ID).Status)
	assert.Equal(t, models.StatusMatched, f.reload(t, found.ID).Status)

	repo.setFailures(0)
	_, err = f.lifecycle.VerifyMatch(context.Background(), moderator, lost.ID, found.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, f.reload(t, found.ID).Status)
}

func TestLifecycle_MarkResolved(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, newItem("Book", models.ItemTypeFound, "books", "Library"))

	resolved, err := f.lifecycle.MarkResolved(context.Background(), moderator, item.ID, "Picked up at the front desk")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
	assert.Equal(t, "Picked up at the front desk", resolved.ResolutionNotes)
	assert.Equal(t, moderator.UserID, *resolved.ResolvedBy)

	again, err := f.lifecycle.MarkResolved(context.Background(), moderator, item.ID, "other notes")
	require.NoError(t, err)
	assert.Equal(t, "Picked up at the front desk", again.ResolutionNotes)

	expired := newItem("Book", models.ItemTypeFound, "books", "Library")
	expired.Status = models.StatusExpired
	f.seed(t, expired)
	_, err = f.lifecycle.MarkResolved(context.Background(), moderator, expired.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLifecycle_ExpireStaleOnlyTouchesActive(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	old := now.Add(-31 * 24 * time.Hour)

	staleActive := newItem("Mug", models.ItemTypeFound, "other", "Cafe")
	staleActive.CreatedAt = old
	staleMatched := newItem("Mug", models.ItemTypeFound, "other", "Cafe")
	staleMatched.CreatedAt = old
	staleMatched.Status = models.StatusMatched
	staleResolved := newItem("Mug", models.ItemTypeFound, "other", "Cafe")
	staleResolved.CreatedAt = old
	staleResolved.Status = models.StatusResolved
	fresh := newItem("Mug", models.ItemTypeFound, "other", "Cafe")

	for _, it := range []*models.LostItem{staleActive, staleMatched, staleResolved, fresh} {
		f.seed(t, it)
	}

	count, err := f.lifecycle.ExpireStale(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.Equal(t, models.StatusExpired, f.reload(t, staleActive.ID).Status)
	assert.Equal(t, models.StatusMatched, f.reload(t, staleMatched.ID).Status)
	assert.Equal(t, models.StatusResolved, f.reload(t, staleResolved.ID).Status)
	assert.Equal(t, models.StatusActive, f.reload(t, fresh.ID).Status)
}
