package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mnemo-backend/internal/models"
	"mnemo-backend/internal/review"
)

type DeckRepo struct {
	pool *pgxpool.Pool
}

func NewDeckRepo(pool *pgxpool.Pool) *DeckRepo {
	return &DeckRepo{pool: pool}
}

func (r *DeckRepo) CreateDeck(ctx context.Context, d *models.Deck) error {
	d.ID = uuid.New()

	query := `INSERT INTO decks (id, user_id, title, card_count)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, d.ID, d.UserID, d.Title, d.CardCount).Scan(&d.CreatedAt)
}

func (r *DeckRepo) GetDeckByID(ctx context.Context, id uuid.UUID) (*models.Deck, error) {
	d := &models.Deck{}
	query := `SELECT id, user_id, title, is_favorite, card_count, created_at
		FROM decks WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.UserID, &d.Title, &d.IsFavorite, &d.CardCount, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &review.NotFoundError{Message: "Deck not found"}
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DeckRepo) ListDecksByUser(ctx context.Context, userID uuid.UUID) ([]*models.Deck, error) {
	query := `SELECT id, user_id, title, is_favorite, card_count, created_at
		FROM decks WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decks []*models.Deck
	for rows.Next() {
		d := &models.Deck{}
		err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.IsFavorite, &d.CardCount, &d.CreatedAt)
		if err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

func (r *DeckRepo) ToggleFavorite(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE decks SET is_favorite = NOT is_favorite WHERE id = $1 AND user_id = $2",
		id, userID,
	)
	return err
}

func (r *DeckRepo) DeleteDeck(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM decks WHERE id = $1", id)
	return err
}

// GetDeckStats buckets a deck's cards by learning progress. Mastered means
// at least three consecutive successful reviews with the ease factor at the
// 2.5 ceiling; learning is anything reviewed but not yet there.
func (r *DeckRepo) GetDeckStats(ctx context.Context, deckID uuid.UUID) (*models.DeckStats, error) {
	stats := &models.DeckStats{}

	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cards WHERE deck_id = $1", deckID).Scan(&stats.TotalCards)
	if err != nil {
		return nil, err
	}

	r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM cards WHERE deck_id = $1 AND repetitions >= 3 AND ease_factor >= 2.5",
		deckID).Scan(&stats.Mastered)

	r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM cards WHERE deck_id = $1 AND repetitions > 0 AND (repetitions < 3 OR ease_factor < 2.5)",
		deckID).Scan(&stats.Learning)

	r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM cards WHERE deck_id = $1 AND repetitions = 0",
		deckID).Scan(&stats.New)

	r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM cards WHERE deck_id = $1 AND due_at <= NOW()",
		deckID).Scan(&stats.DueToday)

	if stats.TotalCards > 0 {
		stats.MasteryRate = float64(stats.Mastered) / float64(stats.TotalCards) * 100
	}

	return stats, nil
}
