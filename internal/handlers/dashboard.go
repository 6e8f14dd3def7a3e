package handlers

import (
	"net/http"

	"mnemo-backend/internal/middleware"
	"mnemo-backend/internal/models"
	"mnemo-backend/internal/queue"
	"mnemo-backend/internal/repository"
)

type DashboardHandler struct {
	statsRepo *repository.StatsRepo
	cardRepo  *repository.CardRepo
	dueCache  *queue.DueCountCache
}

func NewDashboardHandler(statsRepo *repository.StatsRepo, cardRepo *repository.CardRepo, dueCache *queue.DueCountCache) *DashboardHandler {
	return &DashboardHandler{
		statsRepo: statsRepo,
		cardRepo:  cardRepo,
		dueCache:  dueCache,
	}
}

// ReviewStats returns the dashboard aggregate: lifetime and today's review
// counts, the current streak, the due count, and 30 days of activity. The
// due count is served from the Redis cache when the stats worker has not
// invalidated it.
func (h *DashboardHandler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	stats := models.ReviewStats{}

	total, err := h.statsRepo.TotalReviews(ctx, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch review stats", r))
		return
	}
	stats.TotalReviews = total

	if today, err := h.statsRepo.ReviewsToday(ctx, userID); err == nil {
		stats.ReviewsToday = today
	}

	if streak, err := h.statsRepo.StreakDays(ctx, userID); err == nil {
		stats.StreakDays = streak
	}

	due, ok := h.dueCache.Get(ctx, userID)
	if !ok {
		due, err = h.cardRepo.DueCount(ctx, userID)
		if err == nil {
			h.dueCache.Set(ctx, userID, due)
		}
	}
	stats.DueToday = due

	activity, err := h.statsRepo.Activity(ctx, userID, 30)
	if err == nil && activity != nil {
		stats.Activity = activity
	} else {
		stats.Activity = []models.DailyReviewCount{}
	}

	writeJSON(w, http.StatusOK, stats)
}
