package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"
	"github.com/google/uuid"
)

type ContactRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Phone           string `json:"phone" validate:"omitempty,phone,max=30"`
	PreferredMethod string `json:"preferredMethod" validate:"omitempty,oneof=email phone both"`
}

type CharacteristicsRequest struct {
	Color                  string   `json:"color" validate:"max=50"`
	Brand                  string   `json:"brand" validate:"max=100"`
	Model                  string   `json:"model" validate:"max=100"`
	Size                   string   `json:"size" validate:"max=50"`
	DistinguishingFeatures []string `json:"distinguishingFeatures" validate:"omitempty,max=20,dive,max=200"`
}

type ImageRequest struct {
	URL     string `json:"url" validate:"required,max=2048"`
	Caption string `json:"caption" validate:"max=200"`
}

// CreateItemRequest is the item draft accepted on report.
type CreateItemRequest struct {
	Title           string                 `json:"title" validate:"required,max=200"`
	Description     string                 `json:"description" validate:"required,max=1000"`
	Category        string                 `json:"category" validate:"required,oneof=electronics clothing accessories books documents sports_equipment bags jewelry keys other"`
	Type            string                 `json:"type" validate:"required,oneof=lost found"`
	Location        string                 `json:"location" validate:"required,max=200"`
	LastSeen        *time.Time             `json:"lastSeen" validate:"required,notfuture"`
	Contact         ContactRequest         `json:"contact"`
	Characteristics CharacteristicsRequest `json:"characteristics"`
	Images          []ImageRequest         `json:"images" validate:"omitempty,max=10,dive"`
	Tags            []string               `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	Priority        string                 `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// UpdateItemRequest is a partial edit; nil fields are left untouched.
type UpdateItemRequest struct {
	Title           *string                 `json:"title" validate:"omitnil,required,max=200"`
	Description     *string                 `json:"description" validate:"omitnil,required,max=1000"`
	Category        *string                 `json:"category" validate:"omitnil,required,oneof=electronics clothing accessories books documents sports_equipment bags jewelry keys other"`
	Type            *string                 `json:"type" validate:"omitnil,required,oneof=lost found"`
	Location        *string                 `json:"location" validate:"omitnil,required,max=200"`
	LastSeen        *time.Time              `json:"lastSeen" validate:"omitnil,notfuture"`
	Contact         *ContactRequest         `json:"contact" validate:"omitnil"`
	Characteristics *CharacteristicsRequest `json:"characteristics" validate:"omitnil"`
	Images          *[]ImageRequest         `json:"images" validate:"omitnil,max=10,dive"`
	Tags            *[]string               `json:"tags" validate:"omitnil,max=20,dive,required,max=50"`
	Priority        *string                 `json:"priority" validate:"omitnil,oneof=low medium high urgent"`
}

type MatchRequest struct {
	CandidateID uuid.UUID `json:"candidateId"`
	Score       *int      `json:"score"`
}

type VerifyMatchRequest struct {
	Method string `json:"verificationMethod"`
}

type ResolveRequest struct {
	Notes string `json:"notes"`
}

type CommentRequest struct {
	Text      string `json:"text"`
	IsPrivate bool   `json:"isPrivate"`
}

// ItemResponse adds the read-time derived fields and replaces the comment list
// with the one visible to the caller.
type ItemResponse struct {
	*models.LostItem
	Comments   []models.Comment `json:"comments"`
	IsRecent   bool             `json:"isRecent"`
	IsOld      bool             `json:"isOld"`
	MatchCount int              `json:"matchCount"`
}

func NewItemResponse(item *models.LostItem, visible []models.Comment, now time.Time) ItemResponse {
	if visible == nil {
		visible = []models.Comment{}
	}
	return ItemResponse{
		LostItem:   item,
		Comments:   visible,
		IsRecent:   item.IsRecent(now),
		IsOld:      item.IsOld(now),
		MatchCount: item.MatchCount(),
	}
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}
