package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ItemType string

const (
	ItemTypeLost  ItemType = "lost"
	ItemTypeFound ItemType = "found"
)

// Opposite returns the counterpart type a candidate must have.
func (t ItemType) Opposite() ItemType {
	switch t {
	case ItemTypeLost:
		return ItemTypeFound
	case ItemTypeFound:
		return ItemTypeLost
	}
	return ""
}

type ItemStatus string

const (
	StatusActive   ItemStatus = "active"
	StatusMatched  ItemStatus = "matched"
	StatusResolved ItemStatus = "resolved"
	StatusExpired  ItemStatus = "expired"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type VerificationMethod string

const (
	VerifyByAdmin       VerificationMethod = "admin"
	VerifyByPhoto       VerificationMethod = "photo"
	VerifyByDescription VerificationMethod = "description"
	VerifyByMeeting     VerificationMethod = "meeting"
)

// ItemCategories lists the accepted category values.
var ItemCategories = []string{
	"electronics", "clothing", "accessories", "books", "documents",
	"sports_equipment", "bags", "jewelry", "keys", "other",
}

const (
	RecentWindow = 3 * 24 * time.Hour
	OldAge       = 30 * 24 * time.Hour
)

// LostItem is a single lost-or-found report. Matches, comments and images are
// child collections stored inside the item row; they have no identity outside it.
type LostItem struct {
	ID              uuid.UUID                    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title           string                       `gorm:"size:200;not null" json:"title"`
	Description     string                       `gorm:"size:1000;not null" json:"description"`
	Category        string                       `gorm:"size:30;not null;index" json:"category"`
	Type            ItemType                     `gorm:"size:10;not null;index" json:"type"`
	Location        string                       `gorm:"size:200;not null;index" json:"location"`
	LastSeen        time.Time                    `gorm:"not null;index:,sort:desc" json:"lastSeen"`
	ReportedBy      uuid.UUID                    `gorm:"type:uuid;not null;index" json:"reportedBy"`
	Contact         Contact                      `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`
	Images          datatypes.JSONSlice[Image]   `gorm:"type:jsonb" json:"images"`
	Characteristics Characteristics              `gorm:"embedded;embeddedPrefix:char_" json:"characteristics"`
	Status          ItemStatus                   `gorm:"size:20;not null;default:'active';index" json:"status"`
	Matches         datatypes.JSONSlice[Match]   `gorm:"type:jsonb" json:"matches"`
	Comments        datatypes.JSONSlice[Comment] `gorm:"type:jsonb" json:"comments"`
	Tags            pq.StringArray               `gorm:"type:text[];index:,type:gin" json:"tags"`
	Priority        Priority                     `gorm:"size:10;not null;default:'medium'" json:"priority"`
	IsResolved      bool                         `gorm:"default:false" json:"isResolved"`
	ResolvedAt      *time.Time                   `json:"resolvedAt,omitempty"`
	ResolvedBy      *uuid.UUID                   `gorm:"type:uuid" json:"resolvedBy,omitempty"`
	ResolutionNotes string                       `gorm:"size:1000" json:"resolutionNotes,omitempty"`
	Analytics       Analytics                    `gorm:"embedded;embeddedPrefix:analytics_" json:"analytics"`
	Verification    Verification                 `gorm:"embedded;embeddedPrefix:verification_" json:"verification"`
	CreatedAt       time.Time                    `gorm:"index:,sort:desc" json:"createdAt"`
	UpdatedAt       time.Time                    `json:"updatedAt"`
}

func (LostItem) TableName() string {
	return "lost_items"
}

type Contact struct {
	Email           string `gorm:"size:255;not null" json:"email"`
	Phone           string `gorm:"size:30" json:"phone,omitempty"`
	PreferredMethod string `gorm:"size:10;default:'email'" json:"preferredMethod"`
}

type Characteristics struct {
	Color                  string         `gorm:"size:50;index" json:"color,omitempty"`
	Brand                  string         `gorm:"size:100;index" json:"brand,omitempty"`
	Model                  string         `gorm:"size:100" json:"model,omitempty"`
	Size                   string         `gorm:"size:50" json:"size,omitempty"`
	DistinguishingFeatures pq.StringArray `gorm:"type:text[]" json:"distinguishingFeatures,omitempty"`
}

type Image struct {
	URL        string    `json:"url"`
	Caption    string    `json:"caption,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Match is a proposed counterpart. Score is fixed once recorded.
type Match struct {
	Item       uuid.UUID  `json:"item"`
	MatchScore int        `json:"matchScore"`
	MatchedAt  time.Time  `json:"matchedAt"`
	VerifiedBy *uuid.UUID `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	IsVerified bool       `json:"isVerified"`
}

type Comment struct {
	ID        uuid.UUID `json:"id"`
	User      uuid.UUID `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	IsPrivate bool      `json:"isPrivate"`
}

type Verification struct {
	IsVerified bool               `gorm:"default:false" json:"isVerified"`
	VerifiedBy *uuid.UUID         `gorm:"type:uuid" json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time         `json:"verifiedAt,omitempty"`
	Method     VerificationMethod `gorm:"size:20" json:"verificationMethod,omitempty"`
}

type Analytics struct {
	Views    int `gorm:"default:0" json:"views"`
	Contacts int `gorm:"default:0" json:"contacts"`
	Shares   int `gorm:"default:0" json:"shares"`
}

// FindMatch returns the index of the match entry for candidateID, or -1.
func (i *LostItem) FindMatch(candidateID uuid.UUID) int {
	for idx, m := range i.Matches {
		if m.Item == candidateID {
			return idx
		}
	}
	return -1
}

func (i *LostItem) IsTerminal() bool {
	return i.Status.IsTerminal()
}

func (i *LostItem) IsRecent(now time.Time) bool {
	return i.CreatedAt.After(now.Add(-RecentWindow))
}

func (i *LostItem) IsOld(now time.Time) bool {
	return i.CreatedAt.Before(now.Add(-OldAge))
}

func (i *LostItem) MatchCount() int {
	return len(i.Matches)
}

// Clone returns a deep copy, so a caller can mutate it without touching the original.
func (i *LostItem) Clone() *LostItem {
	c := *i
	c.Images = append(datatypes.JSONSlice[Image](nil), i.Images...)
	c.Matches = make(datatypes.JSONSlice[Match], len(i.Matches))
	for idx, m := range i.Matches {
		c.Matches[idx] = m
		if m.VerifiedBy != nil {
			v := *m.VerifiedBy
			c.Matches[idx].VerifiedBy = &v
		}
		if m.VerifiedAt != nil {
			v := *m.VerifiedAt
			c.Matches[idx].VerifiedAt = &v
		}
	}
	c.Comments = append(datatypes.JSONSlice[Comment](nil), i.Comments...)
	c.Tags = append(pq.StringArray(nil), i.Tags...)
	c.Characteristics.DistinguishingFeatures = append(pq.StringArray(nil), i.Characteristics.DistinguishingFeatures...)
	if i.ResolvedAt != nil {
		v := *i.ResolvedAt
		c.ResolvedAt = &v
	}
	if i.ResolvedBy != nil {
		v := *i.ResolvedBy
		c.ResolvedBy = &v
	}
	if i.Verification.VerifiedBy != nil {
		v := *i.Verification.VerifiedBy
		c.Verification.VerifiedBy = &v
	}
	if i.Verification.VerifiedAt != nil {
		v := *i.Verification.VerifiedAt
		c.Verification.VerifiedAt = &v
	}
	return &c
}
