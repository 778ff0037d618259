package services

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/google/uuid"
)

// Score weights. The maximum total is 100.
const (
	scoreBase             = 20
	scoreLocationExact    = 30
	scoreLocationToken    = 10
	scorePerSharedToken   = 5
	scoreLocationTokenCap = 20
	scorePerAttribute     = 10
	scoreTextMax          = 15
	scoreSharedMarker     = 5
)

// Candidate is a scored counterpart proposal.
type Candidate struct {
	ItemID    uuid.UUID `json:"candidateId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// FindCandidates filters the pool down to plausible counterparts of item and
// ranks them by score, newest first on ties. It never mutates its arguments.
func FindCandidates(item *models.LostItem, pool []models.LostItem) ([]Candidate, error) {
	if item.Category == "" || item.Type.Opposite() == "" {
		return nil, ErrInvalidState
	}
	want := item.Type.Opposite()
	query := strings.ToLower(strings.TrimSpace(item.Location))
	queryTokens := locationTokens(item.Location)

	candidates := make([]Candidate, 0)
	for i := range pool {
		other := &pool[i]
		if other.ID == item.ID || other.Type != want || other.Category != item.Category || other.Status != models.StatusActive {
			continue
		}
		exact, shared := locationAffinity(query, queryTokens, other.Location)
		if !exact && shared == 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			ItemID:    other.ID,
			Score:     scorePair(item, other, exact, shared),
			CreatedAt: other.CreatedAt,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ItemID.String() < b.ItemID.String()
	})
	return candidates, nil
}

// locationAffinity reports whether the candidate location contains the query
// location, and how many location tokens the two share.
func locationAffinity(query string, queryTokens map[string]struct{}, candidate string) (bool, int) {
	loc := strings.ToLower(candidate)
	exact := query != "" && strings.Contains(loc, query)
	shared := 0
	for token := range locationTokens(candidate) {
		if _, ok := queryTokens[token]; ok {
			shared++
		}
	}
	return exact, shared
}

func scorePair(item, other *models.LostItem, exact bool, sharedTokens int) int {
	score := scoreBase

	if exact {
		score += scoreLocationExact
	} else {
		score += min(scoreLocationToken+scorePerSharedToken*sharedTokens, scoreLocationTokenCap)
	}

	score += scorePerAttribute * sharedAttributes(&item.Characteristics, &other.Characteristics)

	overlap := jaccard(wordSet(item.Title+" "+item.Description), wordSet(other.Title+" "+other.Description))
	score += int(math.Round(overlap * scoreTextMax))

	if sharesMarker(item, other) {
		score += scoreSharedMarker
	}

	return max(0, min(score, 100))
}

// sharedAttributes counts color/brand/model values present and equal on both sides.
func sharedAttributes(a, b *models.Characteristics) int {
	n := 0
	for _, pair := range [][2]string{
		{a.Color, b.Color},
		{a.Brand, b.Brand},
		{a.Model, b.Model},
	} {
		x := strings.TrimSpace(pair[0])
		if x != "" && strings.EqualFold(x, strings.TrimSpace(pair[1])) {
			n++
		}
	}
	return n
}

func sharesMarker(a, b *models.LostItem) bool {
	markers := make(map[string]struct{})
	for _, t := range a.Tags {
		markers[strings.ToLower(t)] = struct{}{}
	}
	for _, f := range a.Characteristics.DistinguishingFeatures {
		markers[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	for _, t := range b.Tags {
		if _, ok := markers[strings.ToLower(t)]; ok {
			return true
		}
	}
	for _, f := range b.Characteristics.DistinguishingFeatures {
		if _, ok := markers[strings.ToLower(strings.TrimSpace(f))]; ok {
			return true
		}
	}
	return false
}

// locationTokens splits on whitespace, lowercases and drops tokens without letters or digits.
func locationTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(s)) {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if token != "" {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

func wordSet(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(w) >= 3 {
			words[w] = struct{}{}
		}
	}
	return words
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
