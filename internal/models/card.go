package models

import (
	"time"

	"github.com/google/uuid"
)

// Card is a single learnable fact with its SM-2 scheduling state. Front and
// back are opaque display strings; the scheduler never interprets them.
type Card struct {
	ID             uuid.UUID  `json:"id"`
	DeckID         uuid.UUID  `json:"deck_id"`
	UserID         uuid.UUID  `json:"user_id"`
	Front          string     `json:"front"`
	Back           string     `json:"back"`
	IntervalDays   int        `json:"interval_days"`
	EaseFactor     float64    `json:"ease_factor"`
	Repetitions    int        `json:"repetitions"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CardReviewUpdate is the scheduling state written back after one review.
type CardReviewUpdate struct {
	IntervalDays   int
	EaseFactor     float64
	Repetitions    int
	DueAt          time.Time
	LastReviewedAt time.Time
}

// CardState is a full scheduling-state replacement, used by the direct PATCH
// write. LastReviewedAt stays nullable because a card that has never been
// reviewed has no last-review timestamp.
type CardState struct {
	IntervalDays   int
	EaseFactor     float64
	Repetitions    int
	DueAt          time.Time
	LastReviewedAt *time.Time
}

type Deck struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	IsFavorite bool      `json:"is_favorite"`
	CardCount  int       `json:"card_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewEvent is one row of the append-only review log: the quality rating
// plus a snapshot of the card's post-review scheduling state.
type ReviewEvent struct {
	ID           uuid.UUID `json:"id"`
	CardID       uuid.UUID `json:"card_id"`
	UserID       uuid.UUID `json:"user_id"`
	Quality      int       `json:"quality"`
	IntervalDays int       `json:"interval_days"`
	EaseFactor   float64   `json:"ease_factor"`
	Repetitions  int       `json:"repetitions"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

type DeckStats struct {
	TotalCards  int     `json:"total_cards"`
	Mastered    int     `json:"mastered"`
	Learning    int     `json:"learning"`
	New         int     `json:"new"`
	DueToday    int     `json:"due_today"`
	MasteryRate float64 `json:"mastery_rate"`
}

type DailyReviewCount struct {
	Day     time.Time `json:"day"`
	Reviews int       `json:"reviews"`
	Correct int       `json:"correct"`
}

type ReviewStats struct {
	TotalReviews int                `json:"total_reviews"`
	ReviewsToday int                `json:"reviews_today"`
	DueToday     int                `json:"due_today"`
	StreakDays   int                `json:"streak_days"`
	Activity     []DailyReviewCount `json:"activity"`
}
