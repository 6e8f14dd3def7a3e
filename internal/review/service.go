package review

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"mnemo-backend/internal/models"
)

// Service is the request-scoped submit path: one review, one card, exactly
// one persistence write.
type Service struct {
	store     CardStore
	publisher Publisher
	cfg       Config
	now       func() time.Time
}

func NewService(store CardStore, publisher Publisher, cfg Config) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SubmitReview records one review for the given card. Storage errors are
// propagated unchanged so callers can distinguish a retryable persistence
// failure from bad input; the card's stored state is untouched until the
// single UPDATE succeeds, so resubmitting after a failure is safe.
func (s *Service) SubmitReview(ctx context.Context, userID, cardID uuid.UUID, quality int) (*models.Card, error) {
	if err := ValidateQuality(quality); err != nil {
		return nil, err
	}

	card, err := s.store.GetCard(ctx, cardID, userID)
	if err != nil {
		return nil, err
	}

	reviewed, err := Apply(*card, quality, s.now(), s.cfg)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateCard(ctx, cardID, userID, models.CardReviewUpdate{
		IntervalDays:   reviewed.IntervalDays,
		EaseFactor:     reviewed.EaseFactor,
		Repetitions:    reviewed.Repetitions,
		DueAt:          reviewed.DueAt,
		LastReviewedAt: *reviewed.LastReviewedAt,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, *updated, quality)
	return updated, nil
}

// DueCards exposes the storage collaborator's due queue with the configured
// default limit.
func (s *Service) DueCards(ctx context.Context, userID uuid.UUID, limit int) ([]models.Card, error) {
	if limit <= 0 || limit > s.cfg.QueueLimit {
		limit = s.cfg.QueueLimit
	}
	return s.store.LoadDueCards(ctx, userID, limit)
}

// StartSession loads the user's due queue and wraps it in a Session.
func (s *Service) StartSession(ctx context.Context, userID uuid.UUID, limit int) (*Session, error) {
	if limit <= 0 || limit > s.cfg.QueueLimit {
		limit = s.cfg.QueueLimit
	}
	cards, err := s.store.LoadDueCards(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return &Session{
		store:     s.store,
		publisher: s.publisher,
		cfg:       s.cfg,
		userID:    userID,
		cards:     cards,
		now:       s.now,
	}, nil
}

func (s *Service) publish(ctx context.Context, card models.Card, quality int) {
	if s.publisher == nil {
		return
	}
	ev := models.ReviewEvent{
		ID:           uuid.New(),
		CardID:       card.ID,
		UserID:       card.UserID,
		Quality:      quality,
		IntervalDays: card.IntervalDays,
		EaseFactor:   card.EaseFactor,
		Repetitions:  card.Repetitions,
		ReviewedAt:   *card.LastReviewedAt,
	}
	if err := s.publisher.PublishReview(ctx, ev); err != nil {
		log.Printf("review: failed to publish event for card %s: %v", card.ID, err)
	}
}
