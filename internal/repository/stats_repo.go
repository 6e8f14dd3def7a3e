package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mnemo-backend/internal/models"
)

// StatsRepo maintains the append-only review log and the per-day aggregate
// table the dashboard reads. Writes come from the stats worker, not the
// request path.
type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

// RecordReview inserts the review-event row and bumps the day's aggregate in
// one transaction, so the log and the counters never drift.
func (r *StatsRepo) RecordReview(ctx context.Context, ev models.ReviewEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO review_events (id, card_id, user_id, quality, interval_days, ease_factor, repetitions, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.CardID, ev.UserID, ev.Quality, ev.IntervalDays, ev.EaseFactor, ev.Repetitions, ev.ReviewedAt)
	if err != nil {
		return err
	}

	correct := 0
	if ev.Quality >= 3 {
		correct = 1
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO daily_review_stats (user_id, day, reviews, correct)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, day)
		DO UPDATE SET reviews = daily_review_stats.reviews + 1,
			correct = daily_review_stats.correct + $3
	`, ev.UserID, ev.ReviewedAt.UTC().Truncate(24*time.Hour), correct)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *StatsRepo) TotalReviews(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(reviews), 0) FROM daily_review_stats WHERE user_id = $1",
		userID,
	).Scan(&total)
	return total, err
}

func (r *StatsRepo) ReviewsToday(ctx context.Context, userID uuid.UUID) (int, error) {
	var today int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(reviews), 0)
		FROM daily_review_stats
		WHERE user_id = $1 AND day = CURRENT_DATE
	`, userID).Scan(&today)
	return today, err
}

// Activity returns per-day review counts for the last `days` days, most
// recent first.
func (r *StatsRepo) Activity(ctx context.Context, userID uuid.UUID, days int) ([]models.DailyReviewCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day, reviews, correct
		FROM daily_review_stats
		WHERE user_id = $1 AND day >= CURRENT_DATE - $2::int
		ORDER BY day DESC
	`, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activity []models.DailyReviewCount
	for rows.Next() {
		var d models.DailyReviewCount
		if err := rows.Scan(&d.Day, &d.Reviews, &d.Correct); err != nil {
			return nil, err
		}
		activity = append(activity, d)
	}
	return activity, rows.Err()
}

// StreakDays counts consecutive days with at least one review ending today
// or yesterday (a streak is not broken until a full day is missed).
func (r *StatsRepo) StreakDays(ctx context.Context, userID uuid.UUID) (int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day
		FROM daily_review_stats
		WHERE user_id = $1 AND reviews > 0
		ORDER BY day DESC
		LIMIT 366
	`, userID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return 0, err
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	gap := int(today.Sub(days[0].UTC().Truncate(24*time.Hour)).Hours() / 24)
	if gap > 1 {
		return 0, nil
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		prev := days[i-1].UTC().Truncate(24 * time.Hour)
		cur := days[i].UTC().Truncate(24 * time.Hour)
		if int(prev.Sub(cur).Hours()/24) != 1 {
			break
		}
		streak++
	}
	return streak, nil
}
