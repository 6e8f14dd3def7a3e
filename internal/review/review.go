// Package review orchestrates spaced-repetition reviews: it validates
// quality ratings, runs the SM-2 scheduler, applies the product-level ease
// ceiling, and persists the new card state through a storage collaborator.
package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mnemo-backend/internal/models"
	"mnemo-backend/internal/sm2"
)

// Config carries the review policy knobs. EaseFactorMax is a deliberate
// product deviation from canonical SM-2, which has no ease ceiling; keeping
// it here instead of a hidden constant makes the policy visible and
// testable.
type Config struct {
	EaseFactorMax float64
	QueueLimit    int
}

func DefaultConfig() Config {
	return Config{
		EaseFactorMax: 2.5,
		QueueLimit:    20,
	}
}

// CardStore is the storage collaborator. Implementations must scope every
// operation to the owning user; a card that exists but belongs to someone
// else is reported as not found.
type CardStore interface {
	// LoadDueCards returns up to limit cards with due_at <= now, ordered by
	// due_at ascending.
	LoadDueCards(ctx context.Context, userID uuid.UUID, limit int) ([]models.Card, error)
	GetCard(ctx context.Context, cardID, userID uuid.UUID) (*models.Card, error)
	UpdateCard(ctx context.Context, cardID, userID uuid.UUID, upd models.CardReviewUpdate) (*models.Card, error)
}

// Publisher fans a completed review out to interested consumers (the stats
// worker, connected websockets). Publishing is best effort and never blocks
// a review from succeeding.
type Publisher interface {
	PublishReview(ctx context.Context, ev models.ReviewEvent) error
}

type InvalidArgumentError struct{ Message string }

func (e *InvalidArgumentError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// ValidateQuality rejects ratings outside the 0-5 scale. The sm2 package
// itself clamps, so this is the single place out-of-range input is refused.
func ValidateQuality(quality int) error {
	if quality < 0 || quality > 5 {
		return &InvalidArgumentError{Message: "quality must be between 0 and 5"}
	}
	return nil
}

// Apply computes the post-review state for one card. It does not touch
// storage. The returned card has the scheduler's output with the ease factor
// clamped into [sm2.MinEaseFactor, cfg.EaseFactorMax], a recomputed DueAt,
// and LastReviewedAt set to now.
func Apply(card models.Card, quality int, now time.Time, cfg Config) (models.Card, error) {
	if err := ValidateQuality(quality); err != nil {
		return models.Card{}, err
	}

	res := sm2.Calculate(quality, card.Repetitions, card.IntervalDays, card.EaseFactor)
	if cfg.EaseFactorMax > 0 && res.EaseFactor > cfg.EaseFactorMax {
		res.EaseFactor = cfg.EaseFactorMax
	}

	card.IntervalDays = res.IntervalDays
	card.Repetitions = res.Repetitions
	card.EaseFactor = res.EaseFactor
	card.DueAt = sm2.NextReviewDate(res.IntervalDays, now)
	reviewedAt := now
	card.LastReviewedAt = &reviewedAt
	return card, nil
}
