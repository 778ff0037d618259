package dto

import "github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/models"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   bool         `json:"error"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Store     string `json:"store"`
	Cache     string `json:"cache"`
}

type ItemListResponse struct {
	Items      []ItemResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Degraded   bool           `json:"degraded,omitempty"`
}

type RecentResponse struct {
	Items    []ItemResponse `json:"items"`
	Degraded bool           `json:"degraded,omitempty"`
}

type CommentListResponse struct {
	Comments []models.Comment `json:"comments"`
}

type SweepResponse struct {
	Expired int64 `json:"expired"`
}
