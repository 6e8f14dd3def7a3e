package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mnemo-backend/internal/models"
)

// Session sequences a queue of due cards. Reviews are submitted strictly in
// queue order: Submit applies the scheduler to the current card, persists
// it, then advances. A persistence failure leaves the pointer on the failed
// card so the caller can retry against the same pre-review state.
type Session struct {
	store     CardStore
	publisher Publisher
	cfg       Config
	userID    uuid.UUID
	cards     []models.Card
	pos       int
	now       func() time.Time
}

// Current returns the card awaiting review, or nil when the queue is
// exhausted.
func (s *Session) Current() *models.Card {
	if s.pos >= len(s.cards) {
		return nil
	}
	return &s.cards[s.pos]
}

func (s *Session) Remaining() int {
	return len(s.cards) - s.pos
}

func (s *Session) Submitted() int {
	return s.pos
}

func (s *Session) Done() bool {
	return s.pos >= len(s.cards)
}

// Submit records a review for the current card. cardID must match the
// current card; a mismatch means the client's view of the queue is stale and
// is rejected before any state changes.
func (s *Session) Submit(ctx context.Context, cardID uuid.UUID, quality int) (*models.Card, error) {
	current := s.Current()
	if current == nil {
		return nil, &InvalidArgumentError{Message: "review session is already complete"}
	}
	if current.ID != cardID {
		return nil, &InvalidArgumentError{Message: "card is not the current card in the session"}
	}

	reviewed, err := Apply(*current, quality, s.now(), s.cfg)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateCard(ctx, current.ID, s.userID, models.CardReviewUpdate{
		IntervalDays:   reviewed.IntervalDays,
		EaseFactor:     reviewed.EaseFactor,
		Repetitions:    reviewed.Repetitions,
		DueAt:          reviewed.DueAt,
		LastReviewedAt: *reviewed.LastReviewedAt,
	})
	if err != nil {
		// Not advanced: the failed card stays current.
		return nil, err
	}

	s.cards[s.pos] = *updated
	s.pos++

	if s.publisher != nil {
		ev := models.ReviewEvent{
			ID:           uuid.New(),
			CardID:       updated.ID,
			UserID:       updated.UserID,
			Quality:      quality,
			IntervalDays: updated.IntervalDays,
			EaseFactor:   updated.EaseFactor,
			Repetitions:  updated.Repetitions,
			ReviewedAt:   *updated.LastReviewedAt,
		}
		// Best effort, same as the single-card path.
		_ = s.publisher.PublishReview(ctx, ev)
	}

	return updated, nil
}
