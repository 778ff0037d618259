package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/actor"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/google/uuid"
)

const maxCommentLength = 500

type LedgerEventKind string

const (
	EventComment      LedgerEventKind = "comment"
	EventMatch        LedgerEventKind = "match"
	EventVerification LedgerEventKind = "verification"
	EventResolution   LedgerEventKind = "resolution"
)

// LedgerEntry is one line of an item's audit trail.
type LedgerEntry struct {
	Kind      LedgerEventKind `json:"kind"`
	At        time.Time       `json:"at"`
	Actor     *uuid.UUID      `json:"actor,omitempty"`
	Candidate *uuid.UUID      `json:"candidate,omitempty"`
	Score     *int            `json:"score,omitempty"`
	Text      string          `json:"text,omitempty"`
	IsPrivate bool            `json:"isPrivate,omitempty"`
}

type LedgerService struct {
	repo   repository.ItemRepository
	filter *ContentFilter
	now    func() time.Time
}

// NewLedgerService builds the comment ledger. A nil filter accepts any wording.
func NewLedgerService(repo repository.ItemRepository, filter *ContentFilter) *LedgerService {
	return &LedgerService{repo: repo, filter: filter, now: time.Now}
}

// AddComment appends a comment. Comments are allowed in every status, including terminal ones.
func (s *LedgerService) AddComment(ctx context.Context, authorID, itemID uuid.UUID, text string, isPrivate bool) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	verr := &ValidationError{}
	if authorID == uuid.Nil {
		verr.add("user", "is required")
	}
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		verr.add("text", "is required")
	case n > maxCommentLength:
		verr.add("text", fmt.Sprintf("must be at most %d characters", maxCommentLength))
	default:
		if !isPrivate && s.filter.ContainsProfanity(text) {
			verr.add("text", "contains inappropriate language")
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:        uuid.New(),
		User:      authorID,
		Text:      text,
		CreatedAt: s.now(),
		IsPrivate: isPrivate,
	}
	_, err := s.repo.Mutate(ctx, itemID, func(item *models.LostItem) error {
		item.Comments = append(item.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// VisibleComments filters out private comments the viewer may not read.
// The reporter and moderators see everything; authors always see their own.
func VisibleComments(item *models.LostItem, viewer actor.Actor) []models.Comment {
	out := make([]models.Comment, 0, len(item.Comments))
	seeAll := viewer.CanManage(item.ReportedBy)
	for _, c := range item.Comments {
		if c.IsPrivate && !seeAll && (viewer.UserID == uuid.Nil || c.User != viewer.UserID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// History merges comments, match proposals, verification and resolution into
// one trail ordered oldest first.
func History(item *models.LostItem, viewer actor.Actor) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(item.Comments)+len(item.Matches)+2)

	for _, c := range VisibleComments(item, viewer) {
		user := c.User
		entries = append(entries, LedgerEntry{
			Kind:      EventComment,
			At:        c.CreatedAt,
			Actor:     &user,
			Text:      c.Text,
			IsPrivate: c.IsPrivate,
		})
	}
	for _, m := range item.Matches {
		candidate := m.Item
		score := m.MatchScore
		entries = append(entries, LedgerEntry{
			Kind:      EventMatch,
			At:        m.MatchedAt,
			Candidate: &candidate,
			Score:     &score,
		})
	}
	if v := item.Verification; v.IsVerified && v.VerifiedAt != nil {
		entries = append(entries, LedgerEntry{
			Kind:  EventVerification,
			At:    *v.VerifiedAt,
			Actor: v.VerifiedBy,
			Text:  string(v.Method),
		})
	}
	if item.IsResolved && item.ResolvedAt != nil {
		entries = append(entries, LedgerEntry{
			Kind:  EventResolution,
			At:    *item.ResolvedAt,
			Actor: item.ResolvedBy,
			Text:  item.ResolutionNotes,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.Before(entries[j].At)
	})
	return entries
}
