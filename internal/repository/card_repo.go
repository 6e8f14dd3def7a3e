package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mnemo-backend/internal/models"
	"mnemo-backend/internal/review"
	"mnemo-backend/internal/sm2"
)

// CardRepo is the Postgres-backed storage collaborator for cards. Every
// query is scoped to the owning user; a card owned by someone else reads as
// not found. It satisfies review.CardStore.
type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

const cardColumns = `id, deck_id, user_id, front, back,
	interval_days, ease_factor, repetitions, due_at, last_reviewed_at, created_at`

func scanCard(row pgx.Row) (*models.Card, error) {
	c := &models.Card{}
	err := row.Scan(
		&c.ID, &c.DeckID, &c.UserID, &c.Front, &c.Back,
		&c.IntervalDays, &c.EaseFactor, &c.Repetitions, &c.DueAt, &c.LastReviewedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDueCards returns at most limit cards whose review is due, oldest due
// date first.
func (r *CardRepo) LoadDueCards(ctx context.Context, userID uuid.UUID, limit int) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + `
		FROM cards
		WHERE user_id = $1 AND due_at <= NOW()
		ORDER BY due_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (r *CardRepo) GetCard(ctx context.Context, cardID, userID uuid.UUID) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND user_id = $2`

	c, err := scanCard(r.pool.QueryRow(ctx, query, cardID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &review.NotFoundError{Message: "Card not found"}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCard persists the post-review scheduling state in a single UPDATE
// scoped by card and user. Concurrent submissions for the same card resolve
// last-write-wins at this statement.
func (r *CardRepo) UpdateCard(ctx context.Context, cardID, userID uuid.UUID, upd models.CardReviewUpdate) (*models.Card, error) {
	query := `UPDATE cards
		SET interval_days = $1, ease_factor = $2, repetitions = $3,
			due_at = $4, last_reviewed_at = $5
		WHERE id = $6 AND user_id = $7
		RETURNING ` + cardColumns

	c, err := scanCard(r.pool.QueryRow(ctx, query,
		upd.IntervalDays, upd.EaseFactor, upd.Repetitions, upd.DueAt, upd.LastReviewedAt,
		cardID, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &review.NotFoundError{Message: "Card not found"}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ReplaceCardState is the direct scheduling-state write behind the PATCH
// endpoint. Unlike UpdateCard it accepts a null last-reviewed timestamp.
func (r *CardRepo) ReplaceCardState(ctx context.Context, cardID, userID uuid.UUID, state models.CardState) (*models.Card, error) {
	query := `UPDATE cards
		SET interval_days = $1, ease_factor = $2, repetitions = $3,
			due_at = $4, last_reviewed_at = $5
		WHERE id = $6 AND user_id = $7
		RETURNING ` + cardColumns

	c, err := scanCard(r.pool.QueryRow(ctx, query,
		state.IntervalDays, state.EaseFactor, state.Repetitions, state.DueAt, state.LastReviewedAt,
		cardID, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &review.NotFoundError{Message: "Card not found"}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCards inserts new cards with default scheduling state: interval 0,
// repetitions 0, ease factor 2.5, due immediately.
func (r *CardRepo) CreateCards(ctx context.Context, deckID, userID uuid.UUID, newCards []models.NewCard) ([]models.Card, error) {
	now := time.Now()
	cards := make([]models.Card, 0, len(newCards))

	for _, nc := range newCards {
		query := `INSERT INTO cards (id, deck_id, user_id, front, back,
				interval_days, ease_factor, repetitions, due_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + cardColumns

		c, err := scanCard(r.pool.QueryRow(ctx, query,
			uuid.New(), deckID, userID, nc.Front, nc.Back,
			0, sm2.DefaultEaseFactor, 0, now,
		))
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}

	_, err := r.pool.Exec(ctx, "UPDATE decks SET card_count = $1 WHERE id = $2", len(cards), deckID)
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *CardRepo) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE deck_id = $1 ORDER BY due_at ASC`

	rows, err := r.pool.Query(ctx, query, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (r *CardRepo) DueCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM cards WHERE user_id = $1 AND due_at <= NOW()",
		userID,
	).Scan(&count)
	return count, err
}
