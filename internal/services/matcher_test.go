package services

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateIDs(cs []Candidate) []uuid.UUID {
	ids := make([]uuid.UUID, len(cs))
	for i, c := range cs {
		ids[i] = c.ItemID
	}
	return ids
}

func TestFindCandidates_PhoneInLibrary(t *testing.T) {
	lost := newItem("iPhone", models.ItemTypeLost, "electronics", "Library 2nd floor")
	found := newItem("Phone", models.ItemTypeFound, "electronics", "Library")

	got, err := FindCandidates(lost, []models.LostItem{*found})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, found.ID, got[0].ItemID)
	assert.Greater(t, got[0].Score, 0)
}

func TestFindCandidates_SharedTokenIncluded(t *testing.T) {
	lost := newItem("Blue umbrella", models.ItemTypeLost, "accessories", "Student Center, room 4")
	found := newItem("Umbrella", models.ItemTypeFound, "accessories", "center lobby")

	got, err := FindCandidates(lost, []models.LostItem{*found})
	require.NoError(t, err)
	assert.Contains(t, candidateIDs(got), found.ID)
}

func TestFindCandidates_PunctuationTrimmedFromTokens(t *testing.T) {
	lost := newItem("Keys", models.ItemTypeLost, "keys", "Gym,")
	found := newItem("Keyring", models.ItemTypeFound, "keys", "(gym) entrance")

	got, err := FindCandidates(lost, []models.LostItem{*found})
	require.NoError(t, err)
	assert.Contains(t, candidateIDs(got), found.ID)
}

func TestFindCandidates_Exclusions(t *testing.T) {
	lost := newItem("Wallet", models.ItemTypeLost, "accessories", "Library")

	otherCategory := newItem("Wallet", models.ItemTypeFound, "documents", "Library")
	sameType := newItem("Wallet", models.ItemTypeLost, "accessories", "Library")
	noSharedToken := newItem("Wallet", models.ItemTypeFound, "accessories", "Cafeteria")
	resolved := newItem("Wallet", models.ItemTypeFound, "accessories", "Library")
	resolved.Status = models.StatusResolved
	matched := newItem("Wallet", models.ItemTypeFound, "accessories", "Library")
	matched.Status = models.StatusMatched
	self := *lost

	pool := []models.LostItem{*otherCategory, *sameType, *noSharedToken, *resolved, *matched, self}
	got, err := FindCandidates(lost, pool)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindCandidates_ExactLocationOutranksTokenOnly(t *testing.T) {
	lost := newItem("Laptop", models.ItemTypeLost, "electronics", "Library 2nd floor")

	exact := newItem("Laptop", models.ItemTypeFound, "electronics", "library 2nd floor, east wing")
	token := newItem("Laptop", models.ItemTypeFound, "electronics", "Library basement")
	token.CreatedAt = exact.CreatedAt.Add(time.Minute)

	got, err := FindCandidates(lost, []models.LostItem{*token, *exact})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, exact.ID, got[0].ItemID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestFindCandidates_CharacteristicsOutrankNone(t *testing.T) {
	lost := newItem("Backpack", models.ItemTypeLost, "bags", "Gym")
	lost.Characteristics = models.Characteristics{Color: "Black", Brand: "Jansport"}

	withTraits := newItem("Backpack", models.ItemTypeFound, "bags", "Gym")
	withTraits.Characteristics = models.Characteristics{Color: "black", Brand: "JanSport"}
	plain := newItem("Backpack", models.ItemTypeFound, "bags", "Gym")
	plain.CreatedAt = withTraits.CreatedAt.Add(time.Hour)

	got, err := FindCandidates(lost, []models.LostItem{*plain, *withTraits})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, withTraits.ID, got[0].ItemID)
	assert.Equal(t, got[1].Score+2*scorePerAttribute, got[0].Score)
}

func TestFindCandidates_TiesBreakOnRecency(t *testing.T) {
	lost := newItem("Scarf", models.ItemTypeLost, "clothing", "Hall B")

	older := newItem("Scarf", models.ItemTypeFound, "clothing", "Hall B")
	older.CreatedAt = time.Now().Add(-48 * time.Hour)
	newer := newItem("Scarf", models.ItemTypeFound, "clothing", "Hall B")
	newer.CreatedAt = time.Now().Add(-time.Hour)

	got, err := FindCandidates(lost, []models.LostItem{*older, *newer})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Score, got[1].Score)
	assert.Equal(t, []uuid.UUID{newer.ID, older.ID}, candidateIDs(got))
}

func TestFindCandidates_ScoreBounded(t *testing.T) {
	lost := newItem("Silver watch", models.ItemTypeLost, "jewelry", "Pool")
	lost.Characteristics = models.Characteristics{Color: "silver", Brand: "Casio", Model: "F91W"}
	lost.Tags = pq.StringArray{"watch"}

	twin := newItem("Silver watch", models.ItemTypeFound, "jewelry", "Pool")
	twin.Description = lost.Description
	twin.Characteristics = lost.Characteristics
	twin.Tags = pq.StringArray{"watch"}

	got, err := FindCandidates(lost, []models.LostItem{*twin})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].Score)

	again, err := FindCandidates(lost, []models.LostItem{*twin})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFindCandidates_DoesNotMutateInputs(t *testing.T) {
	lost := newItem("Calculator", models.ItemTypeLost, "electronics", "Math building")
	found := newItem("Calculator", models.ItemTypeFound, "electronics", "Math building")
	lostBefore := lost.Clone()
	pool := []models.LostItem{*found}
	foundBefore := found.Clone()

	_, err := FindCandidates(lost, pool)
	require.NoError(t, err)
	assert.Equal(t, lostBefore, lost.Clone())
	assert.Equal(t, foundBefore, pool[0].Clone())
}

func TestFindCandidates_MissingCategoryOrType(t *testing.T) {
	noCategory := newItem("Thing", models.ItemTypeLost, "", "Library")
	_, err := FindCandidates(noCategory, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	noType := newItem("Thing", "", "other", "Library")
	_, err = FindCandidates(noType, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}
