package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"mnemo-backend/internal/middleware"
	"mnemo-backend/internal/models"
	"mnemo-backend/internal/review"
)

// CardStateStore is the slice of card storage the direct PATCH write needs.
type CardStateStore interface {
	ReplaceCardState(ctx context.Context, cardID, userID uuid.UUID, state models.CardState) (*models.Card, error)
}

type ReviewHandler struct {
	reviews  *review.Service
	cards    CardStateStore
	validate *validator.Validate
}

func NewReviewHandler(reviews *review.Service, cards CardStateStore) *ReviewHandler {
	return &ReviewHandler{
		reviews:  reviews,
		cards:    cards,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Queue returns the caller's due cards, oldest due date first.
func (h *ReviewHandler) Queue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a positive integer", r))
			return
		}
		limit = n
	}

	cards, err := h.reviews.DueCards(r.Context(), userID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load due cards", r))
		return
	}

	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
		"count": len(cards),
	})
}

// SubmitReview records one quality rating for one card.
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	card, err := h.reviews.SubmitReview(r.Context(), userID, cardID, req.Quality)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"card": card})
}

// SubmitBatch runs an ordered batch of reviews through a review session.
// Reviews must reference the due queue in order; the run stops at the first
// failure and reports how far it got, leaving the failed card current so a
// resubmit picks up exactly where this call stopped.
func (h *ReviewHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.BatchReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(req.Reviews) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "reviews must not be empty", r))
		return
	}

	sess, err := h.reviews.StartSession(r.Context(), userID, len(req.Reviews))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load review session", r))
		return
	}

	for _, item := range req.Reviews {
		if _, err := sess.Submit(r.Context(), item.CardID, item.Quality); err != nil {
			fields := map[string]string{
				"submitted_count": strconv.Itoa(sess.Submitted()),
				"failed_card_id":  item.CardID.String(),
			}
			switch e := err.(type) {
			case *review.InvalidArgumentError:
				writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", e.Message, fields, r))
			case *review.NotFoundError:
				writeJSON(w, http.StatusNotFound, errorRespWithFields("NOT_FOUND", e.Message, fields, r))
			default:
				writeJSON(w, http.StatusInternalServerError, errorRespWithFields("INTERNAL_ERROR", "Failed to persist review state", fields, r))
			}
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submitted": sess.Submitted(),
		"remaining": sess.Remaining(),
		"completed": sess.Done(),
	})
}

// UpdateCard is the direct scheduling-state write used by sync clients. The
// review controller is bypassed, so the wire bounds are enforced here:
// repetitions >= 0, ease factor within [1.3, 2.6], RFC3339 timestamps.
func (h *ReviewHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid card ID", r))
		return
	}

	var req models.UpdateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationFields(err), r))
		return
	}

	// interval is a legacy alias for interval_days.
	intervalDays := req.IntervalDays
	if intervalDays == nil {
		intervalDays = req.Interval
	}
	if intervalDays == nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"interval_days": "interval_days is required"}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	card, err := h.cards.ReplaceCardState(r.Context(), cardID, userID, models.CardState{
		IntervalDays:   *intervalDays,
		EaseFactor:     *req.EaseFactor,
		Repetitions:    *req.Repetitions,
		DueAt:          *req.DueAt,
		LastReviewedAt: req.LastReviewedAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"card": card})
}

// validationFields flattens validator errors into a json-field → reason map.
func validationFields(err error) map[string]string {
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["body"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		name := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "gte":
			fields[name] = name + " must be at least " + fe.Param()
		case "lte":
			fields[name] = name + " must be at most " + fe.Param()
		case "min":
			fields[name] = name + " must have at least " + fe.Param() + " items"
		case "max":
			fields[name] = name + " is too long"
		default:
			fields[name] = name + " is invalid"
		}
	}
	return fields
}

func toSnake(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
