package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/cache"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/google/uuid"
)

const defaultPoolLimit = 500

type MatchService struct {
	repo      repository.ItemRepository
	cache     cache.StatsCache
	poolLimit int
	now       func() time.Time
}

func NewMatchService(repo repository.ItemRepository, statsCache cache.StatsCache, poolLimit int) *MatchService {
	if poolLimit <= 0 {
		poolLimit = defaultPoolLimit
	}
	return &MatchService{
		repo:      repo,
		cache:     statsCache,
		poolLimit: poolLimit,
		now:       time.Now,
	}
}

// FindCandidates scores the current population against the item without writing anything.
func (s *MatchService) FindCandidates(ctx context.Context, itemID uuid.UUID) ([]Candidate, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.candidatesFor(ctx, item)
}

func (s *MatchService) candidatesFor(ctx context.Context, item *models.LostItem) ([]Candidate, error) {
	if item.Category == "" || item.Type.Opposite() == "" {
		return nil, fmt.Errorf("item %s has no category or type: %w", item.ID, ErrInvalidState)
	}
	pool, err := s.repo.FindCandidatePool(ctx, item.Type.Opposite(), item.Category, item.ID, s.poolLimit)
	if err != nil {
		return nil, err
	}
	return FindCandidates(item, pool)
}

// AddMatch records candidateID as a proposed counterpart. Re-adding an existing
// candidate is a no-op that keeps the first score.
func (s *MatchService) AddMatch(ctx context.Context, caller actor.Actor, itemID, candidateID uuid.UUID, score int) (*models.LostItem, error) {
	verr := &ValidationError{}
	if itemID == candidateID {
		verr.add("candidateId", "an item cannot match itself")
	}
	if score < 0 || score > 100 {
		verr.add("score", "must be between 0 and 100")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByID(ctx, candidateID); err != nil {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, err)
	}

	changed := false
	now := s.now()
	item, err := s.repo.Mutate(ctx, itemID, func(item *models.LostItem) error {
		if !caller.CanManage(item.ReportedBy) {
			return ErrForbidden
		}
		if item.FindMatch(candidateID) >= 0 {
			return repository.ErrNoChange
		}
		if item.IsTerminal() {
			return fmt.Errorf("item is %s: %w", item.Status, ErrInvalidState)
		}
		item.Matches = append(item.Matches, models.Match{
			Item:       candidateID,
			MatchScore: score,
			MatchedAt:  now,
		})
		if item.Status == models.StatusActive {
			item.Status = models.StatusMatched
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.cache.Invalidate(ctx)
		slog.Info("match recorded", "item_id", itemID, "candidate_id", candidateID, "score", score)
	}
	return item, nil
}

// RunMatching finds candidates and records every new one in a single write.
// Either all new entries are stored or none are.
func (s *MatchService) RunMatching(ctx context.Context, caller actor.Actor, itemID uuid.UUID) (*models.LostItem, []Candidate, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if !caller.CanManage(item.ReportedBy) {
		return nil, nil, ErrForbidden
	}
	if item.IsTerminal() {
		return nil, nil, fmt.Errorf("item is %s: %w", item.Status, ErrInvalidState)
	}

	candidates, err := s.candidatesFor(ctx, item)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return item, candidates, nil
	}

	added := 0
	now := s.now()
	updated, err := s.repo.Mutate(ctx, itemID, func(item *models.LostItem) error {
		if item.IsTerminal() {
			return fmt.Errorf("item is %s: %w", item.Status, ErrInvalidState)
		}
		added = 0
		for _, c := range candidates {
			if item.FindMatch(c.ItemID) >= 0 {
				continue
			}
			item.Matches = append(item.Matches, models.Match{
				Item:       c.ItemID,
				MatchScore: c.Score,
				MatchedAt:  now,
			})
			added++
		}
		if added == 0 {
			return repository.ErrNoChange
		}
		if item.Status == models.StatusActive {
			item.Status = models.StatusMatched
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if added > 0 {
		s.cache.Invalidate(ctx)
	}

	slog.Info("matching run", "item_id", itemID, "candidates", len(candidates), "recorded", added)
	return updated, candidates, nil
}
