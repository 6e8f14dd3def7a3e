package models

import (
	"time"

	"github.com/google/uuid"
)

type NewCard struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back" validate:"required"`
}

type CreateDeckRequest struct {
	Title string    `json:"title" validate:"required,max=200"`
	Cards []NewCard `json:"cards" validate:"required,min=1,dive"`
}

type ReviewRequest struct {
	Quality int `json:"quality"` // 0=blackout .. 5=perfect
}

type BatchReviewItem struct {
	CardID  uuid.UUID `json:"card_id"`
	Quality int       `json:"quality"`
}

type BatchReviewRequest struct {
	Reviews []BatchReviewItem `json:"reviews"`
}

// UpdateCardRequest is the direct scheduling-state write used by sync
// clients. interval is a legacy alias for interval_days; one of the two must
// be present. last_reviewed_at may be omitted because a card that has never
// been reviewed has no such timestamp; the remaining fields are required.
// Bounds mirror the cards table constraints: the wire tolerates ease factors
// up to 2.6 even though the review controller itself clamps at its
// configured ceiling.
type UpdateCardRequest struct {
	IntervalDays   *int       `json:"interval_days" validate:"omitempty,gte=0"`
	Interval       *int       `json:"interval" validate:"omitempty,gte=0"`
	Repetitions    *int       `json:"repetitions" validate:"required,gte=0"`
	EaseFactor     *float64   `json:"ease_factor" validate:"required,gte=1.3,lte=2.6"`
	DueAt          *time.Time `json:"due_at" validate:"required"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
}

// WebSocket message envelope pushed to connected clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ReviewRecordedEvent struct {
	CardID       uuid.UUID `json:"card_id"`
	Quality      int       `json:"quality"`
	IntervalDays int       `json:"interval_days"`
	Repetitions  int       `json:"repetitions"`
	DueAt        time.Time `json:"due_at"`
}

// API error envelope.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
