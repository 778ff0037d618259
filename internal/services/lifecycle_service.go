package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/cache"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	maxResolutionNotes = 1000
	defaultExpiryAge   = 30 * 24 * time.Hour
)

type LifecycleConfig struct {
	ExpiryAge time.Duration
	// RetryBase and RetryAttempts bound the counterpart write of the verify cascade.
	RetryBase     time.Duration
	RetryAttempts uint64
}

type LifecycleService struct {
	repo  repository.ItemRepository
	cache cache.StatsCache
	cfg   LifecycleConfig
	now   func() time.Time
}

func NewLifecycleService(repo repository.ItemRepository, statsCache cache.StatsCache, cfg LifecycleConfig) *LifecycleService {
	if cfg.ExpiryAge <= 0 {
		cfg.ExpiryAge = defaultExpiryAge
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	return &LifecycleService{
		repo:  repo,
		cache: statsCache,
		cfg:   cfg,
		now:   time.Now,
	}
}

func parseMethod(raw string) (models.VerificationMethod, error) {
	if raw == "" {
		return models.VerifyByAdmin, nil
	}
	switch m := models.VerificationMethod(raw); m {
	case models.VerifyByAdmin, models.VerifyByPhoto, models.VerifyByDescription, models.VerifyByMeeting:
		return m, nil
	}
	return "", fieldError("verificationMethod", "must be one of: admin, photo, description, meeting")
}

// VerifyMatch confirms the match entry for candidateID, resolves the item and then
// resolves the counterpart. If the counterpart write keeps failing the item stays
// resolved and ErrUnavailable is returned; calling again finishes the job.
func (s *LifecycleService) VerifyMatch(ctx context.Context, caller actor.Actor, itemID, candidateID uuid.UUID, rawMethod string) (*models.LostItem, error) {
	method, err := parseMethod(rawMethod)
	if err != nil {
		return nil, err
	}
	verifier := caller.UserID

	cascade := false
	now := s.now()
	item, err := s.repo.Mutate(ctx, itemID, func(item *models.LostItem) error {
		if !caller.CanManage(item.ReportedBy) {
			return ErrForbidden
		}
		idx := item.FindMatch(candidateID)
		if idx < 0 {
			if item.IsTerminal() {
				return fmt.Errorf("item is %s: %w", item.Status, ErrInvalidState)
			}
			return fmt.Errorf("no match entry for candidate %s: %w", candidateID, ErrNotFound)
		}
		if item.Status == models.StatusResolved {
			cascade = item.Matches[idx].IsVerified
			return repository.ErrNoChange
		}
		if !models.CanTransition(item.Status, models.StatusResolved) {
			return fmt.Errorf("item is %s: %w", item.Status, ErrInvalidState)
		}

		entry := &item.Matches[idx]
		entry.IsVerified = true
		entry.VerifiedBy = &verifier
		entry.VerifiedAt = &now
		item.Verification = models.Verification{
			IsVerified: true,
			VerifiedBy: &verifier,
			VerifiedAt: &now,
			Method:     method,
		}
		resolve(item, verifier, now, item.ResolutionNotes)
		cascade = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	if !cascade {
		return item, nil
	}

	if err := s.resolveCounterpart(ctx, itemID, candidateID, verifier, method); err != nil {
		slog.Error("verify cascade incomplete", "item_id", itemID, "candidate_id", candidateID, "error", err)
		return item, fmt.Errorf("resolve counterpart %s: %w", candidateID, err)
	}

	slog.Info("match verified", "item_id", itemID, "candidate_id", candidateID, "actor_id", verifier, "method", method)
	return item, nil
}

func (s *LifecycleService) resolveCounterpart(ctx context.Context, itemID, counterpartID, verifier uuid.UUID, method models.VerificationMethod) error {
	backoff := retry.WithMaxRetries(s.cfg.RetryAttempts, retry.NewExponential(s.cfg.RetryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		now := s.now()
		_, err := s.repo.Mutate(ctx, counterpartID, func(other *models.LostItem) error {
			switch other.Status {
			case models.StatusResolved:
				return repository.ErrNoChange
			case models.StatusExpired:
				slog.Warn("counterpart expired, not resolving", "item_id", itemID, "counterpart_id", counterpartID)
				return repository.ErrNoChange
			}
			if idx := other.FindMatch(itemID); idx >= 0 {
				entry := &other.Matches[idx]
				entry.IsVerified = true
				entry.VerifiedBy = &verifier
				entry.VerifiedAt = &now
			}
			other.Verification = models.Verification{
				IsVerified: true,
				VerifiedBy: &verifier,
				VerifiedAt: &now,
				Method:     method,
			}
			resolve(other, verifier, now, fmt.Sprintf("Resolved through verified match with item %s", itemID))
			return nil
		})
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})

	if errors.Is(err, ErrNotFound) {
		slog.Warn("counterpart no longer exists", "item_id", itemID, "counterpart_id", counterpartID)
		return nil
	}
	return err
}

// MarkResolved closes an item without a verified match.
func (s *LifecycleService) MarkResolved(ctx context.Context, caller actor.Actor, itemID uuid.UUID, notes string) (*models.LostItem, error) {
	if utf8.RuneCountInString(notes) > maxResolutionNotes {
		return nil, fieldError("notes", fmt.Sprintf("must be at most %d characters", maxResolutionNotes))
	}

	changed := false
	now := s.now()
	item, err := s.repo.Mutate(ctx, itemID, func(item *models.LostItem) error {
		if !caller.CanManage(item.ReportedBy) {
			return ErrForbidden
		}
		if item.Status == models.StatusResolved {
			return repository.ErrNoChange
		}
		if !models.CanTransition(item.Status, models.StatusResolved) {
			return fmt.Errorf("item is %s: %w", item.Status, ErrInvalidState)
		}
		resolve(item, caller.UserID, now, notes)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.cache.Invalidate(ctx)
		slog.Info("item resolved", "item_id", itemID, "actor_id", caller.UserID)
	}
	return item, nil
}

// ExpireStale moves active items older than the configured age to expired.
// Matched and resolved items are never touched.
func (s *LifecycleService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.cfg.ExpiryAge)
	count, err := s.repo.ExpireActiveBefore(ctx, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("expire items created before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if count > 0 {
		s.cache.Invalidate(ctx)
	}
	slog.Info("expiry sweep finished", "expired", count, "cutoff", cutoff)
	return count, nil
}

func resolve(item *models.LostItem, by uuid.UUID, at time.Time, notes string) {
	item.Status = models.StatusResolved
	item.IsResolved = true
	item.ResolvedAt = &at
	if by != uuid.Nil {
		item.ResolvedBy = &by
	}
	item.ResolutionNotes = notes
}
