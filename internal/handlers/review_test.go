package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mnemo-backend/internal/middleware"
	"mnemo-backend/internal/models"
	"mnemo-backend/internal/review"
	"mnemo-backend/internal/sm2"
)

// fakeCardStore implements review.CardStore and CardStateStore in memory.
type fakeCardStore struct {
	cards     map[uuid.UUID]models.Card
	order     []uuid.UUID
	updateErr error
	updates   int
}

func newFakeCardStore(cards ...models.Card) *fakeCardStore {
	m := make(map[uuid.UUID]models.Card, len(cards))
	var order []uuid.UUID
	for _, c := range cards {
		m[c.ID] = c
		order = append(order, c.ID)
	}
	return &fakeCardStore{cards: m, order: order}
}

func (f *fakeCardStore) LoadDueCards(_ context.Context, userID uuid.UUID, limit int) ([]models.Card, error) {
	var due []models.Card
	for _, id := range f.order {
		c := f.cards[id]
		if c.UserID == userID && len(due) < limit {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeCardStore) GetCard(_ context.Context, cardID, userID uuid.UUID) (*models.Card, error) {
	c, ok := f.cards[cardID]
	if !ok || c.UserID != userID {
		return nil, &review.NotFoundError{Message: "Card not found"}
	}
	return &c, nil
}

func (f *fakeCardStore) UpdateCard(_ context.Context, cardID, userID uuid.UUID, upd models.CardReviewUpdate) (*models.Card, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	c, ok := f.cards[cardID]
	if !ok || c.UserID != userID {
		return nil, &review.NotFoundError{Message: "Card not found"}
	}
	c.IntervalDays = upd.IntervalDays
	c.EaseFactor = upd.EaseFactor
	c.Repetitions = upd.Repetitions
	c.DueAt = upd.DueAt
	reviewedAt := upd.LastReviewedAt
	c.LastReviewedAt = &reviewedAt
	f.cards[cardID] = c
	f.updates++
	return &c, nil
}

func (f *fakeCardStore) ReplaceCardState(_ context.Context, cardID, userID uuid.UUID, state models.CardState) (*models.Card, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	c, ok := f.cards[cardID]
	if !ok || c.UserID != userID {
		return nil, &review.NotFoundError{Message: "Card not found"}
	}
	c.IntervalDays = state.IntervalDays
	c.EaseFactor = state.EaseFactor
	c.Repetitions = state.Repetitions
	c.DueAt = state.DueAt
	c.LastReviewedAt = state.LastReviewedAt
	f.cards[cardID] = c
	f.updates++
	return &c, nil
}

func dueCard(userID uuid.UUID) models.Card {
	return models.Card{
		ID:           uuid.New(),
		DeckID:       uuid.New(),
		UserID:       userID,
		Front:        "What resets repetitions?",
		Back:         "A quality rating below 3",
		IntervalDays: 0,
		EaseFactor:   sm2.DefaultEaseFactor,
		Repetitions:  0,
		DueAt:        time.Now().Add(-time.Hour),
	}
}

// newReviewRouter mounts the review routes behind a middleware that injects
// the test user, standing in for JWT auth.
func newReviewRouter(store *fakeCardStore, userID uuid.UUID) http.Handler {
	svc := review.NewService(store, nil, review.DefaultConfig())
	h := NewReviewHandler(svc, store)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/review/queue", h.Queue)
	r.Post("/review/queue/submit", h.SubmitBatch)
	r.Post("/cards/{id}/review", h.SubmitReview)
	r.Patch("/cards/{id}", h.UpdateCard)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error.Code
}

func TestSubmitReview_Success(t *testing.T) {
	userID := uuid.New()
	card := dueCard(userID)
	store := newFakeCardStore(card)
	router := newReviewRouter(store, userID)

	rr := doJSON(t, router, http.MethodPost, "/cards/"+card.ID.String()+"/review",
		models.ReviewRequest{Quality: 5})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Card models.Card `json:"card"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Card.Repetitions != 1 || resp.Card.IntervalDays != 1 {
		t.Errorf("got reps=%d interval=%d, want 1 and 1", resp.Card.Repetitions, resp.Card.IntervalDays)
	}
	// Quality 5 would raise ease to 2.6; the default ceiling holds it at 2.5.
	if resp.Card.EaseFactor != 2.5 {
		t.Errorf("EaseFactor = %v, want 2.5", resp.Card.EaseFactor)
	}
	if resp.Card.LastReviewedAt == nil {
		t.Error("LastReviewedAt not set")
	}
}

func TestSubmitReview_InvalidQuality(t *testing.T) {
	userID := uuid.New()
	card := dueCard(userID)
	store := newFakeCardStore(card)
	router := newReviewRouter(store, userID)

	for _, quality := range []int{-1, 6} {
		rr := doJSON(t, router, http.MethodPost, "/cards/"+card.ID.String()+"/review",
			models.ReviewRequest{Quality: quality})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("quality %d: status = %d, want 400", quality, rr.Code)
		}
		if code := errorCode(t, rr); code != "VALIDATION_ERROR" {
			t.Errorf("quality %d: code = %q, want VALIDATION_ERROR", quality, code)
		}
	}
	if store.updates != 0 {
		t.Errorf("store updates = %d, want 0 for rejected input", store.updates)
	}
}

func TestSubmitReview_UnknownCard(t *testing.T) {
	userID := uuid.New()
	router := newReviewRouter(newFakeCardStore(), userID)

	rr := doJSON(t, router, http.MethodPost, "/cards/"+uuid.NewString()+"/review",
		models.ReviewRequest{Quality: 4})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if code := errorCode(t, rr); code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", code)
	}
}

func TestSubmitReview_OtherUsersCard(t *testing.T) {
	owner := uuid.New()
	card := dueCard(owner)
	router := newReviewRouter(newFakeCardStore(card), uuid.New())

	rr := doJSON(t, router, http.MethodPost, "/cards/"+card.ID.String()+"/review",
		models.ReviewRequest{Quality: 4})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for another user's card", rr.Code)
	}
}

func TestSubmitReview_PersistenceFailure(t *testing.T) {
	userID := uuid.New()
	card := dueCard(userID)
	store := newFakeCardStore(card)
	store.updateErr = errors.New("db down")
	router := newReviewRouter(store, userID)

	rr := doJSON(t, router, http.MethodPost, "/cards/"+card.ID.String()+"/review",
		models.ReviewRequest{Quality: 4})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if code := errorCode(t, rr); code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", code)
	}

	// Stored state untouched, so a resubmit starts from the same place.
	if stored := store.cards[card.ID]; stored.Repetitions != 0 || stored.LastReviewedAt != nil {
		t.Errorf("stored card mutated despite failed write: %+v", stored)
	}
}

func TestQueue(t *testing.T) {
	userID := uuid.New()
	first := dueCard(userID)
	second := dueCard(userID)
	other := dueCard(uuid.New())
	router := newReviewRouter(newFakeCardStore(first, second, other), userID)

	rr := doJSON(t, router, http.MethodGet, "/review/queue", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Cards []models.Card `json:"cards"`
		Count int           `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2 (other user's card excluded)", resp.Count)
	}
}

func TestQueue_BadLimit(t *testing.T) {
	router := newReviewRouter(newFakeCardStore(), uuid.New())

	rr := doJSON(t, router, http.MethodGet, "/review/queue?limit=abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitBatch_AllSucceed(t *testing.T) {
	userID := uuid.New()
	first := dueCard(userID)
	second := dueCard(userID)
	store := newFakeCardStore(first, second)
	router := newReviewRouter(store, userID)

	rr := doJSON(t, router, http.MethodPost, "/review/queue/submit", models.BatchReviewRequest{
		Reviews: []models.BatchReviewItem{
			{CardID: first.ID, Quality: 5},
			{CardID: second.ID, Quality: 2},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Submitted int  `json:"submitted"`
		Remaining int  `json:"remaining"`
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Submitted != 2 || !resp.Completed {
		t.Errorf("got %+v, want 2 submitted and completed", resp)
	}
	if store.updates != 2 {
		t.Errorf("store updates = %d, want 2", store.updates)
	}

	// The failed-quality card was relearned, not advanced.
	if c := store.cards[second.ID]; c.Repetitions != 0 || c.IntervalDays != 1 {
		t.Errorf("failed card state = reps %d interval %d, want 0 and 1", c.Repetitions, c.IntervalDays)
	}
}

func TestSubmitBatch_OutOfOrderRejected(t *testing.T) {
	userID := uuid.New()
	first := dueCard(userID)
	second := dueCard(userID)
	store := newFakeCardStore(first, second)
	router := newReviewRouter(store, userID)

	rr := doJSON(t, router, http.MethodPost, "/review/queue/submit", models.BatchReviewRequest{
		Reviews: []models.BatchReviewItem{
			{CardID: second.ID, Quality: 5}, // queue order starts at first
		},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rr.Code, rr.Body.String())
	}
	if store.updates != 0 {
		t.Errorf("store updates = %d, want 0", store.updates)
	}
}

func TestSubmitBatch_Empty(t *testing.T) {
	router := newReviewRouter(newFakeCardStore(), uuid.New())

	rr := doJSON(t, router, http.MethodPost, "/review/queue/submit", models.BatchReviewRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestUpdateCard_Valid(t *testing.T) {
	userID := uuid.New()
	card := dueCard(userID)
	store := newFakeCardStore(card)
	router := newReviewRouter(store, userID)

	due := time.Now().AddDate(0, 0, 6).UTC()
	reviewed := time.Now().UTC()
	body := map[string]interface{}{
		"interval_days":    6,
		"repetitions":      2,
		"ease_factor":      2.6, // wire tolerates up to 2.6
		"due_at":           due.Format(time.RFC3339),
		"last_reviewed_at": reviewed.Format(time.RFC3339),
	}

	rr := doJSON(t, router, http.MethodPatch, "/cards/"+card.ID.String(), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	stored := store.cards[card.ID]
	if stored.IntervalDays != 6 || stored.Repetitions != 2 || stored.EaseFactor != 2.6 {
		t.Errorf("stored state = %+v, want interval 6, reps 2, ease 2.6", stored)
	}
}

func TestUpdateCard_LegacyIntervalAlias(t *testing.T) {
	userID := uuid.New()
	card := dueCard(userID)
	store := newFakeCardStore(card)
	router := newReviewRouter(store, userID)

	body := map[string]interface{}{
		"interval":    3,
		"repetitions": 1,
		"ease_factor": 2.4,
		"due_at":      time.Now().AddDate(0, 0, 3).UTC().Format(time.RFC3339),
	}

	rr := doJSON(t, router, http.MethodPatch, "/cards/"+card.ID.String(), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	if store.cards[card.ID].IntervalDays != 3 {
		t.Errorf("IntervalDays = %d, want 3 via legacy alias", store.cards[card.ID].IntervalDays)
	}
}

func TestUpdateCard_NullableLastReviewed(t *testing.T) {
	userID := uuid.New()
	card := dueCard(userID)
	store := newFakeCardStore(card)
	router := newReviewRouter(store, userID)

	// A sync client can push a card that has never been reviewed, so
	// last_reviewed_at is the one field that may be absent.
	body := map[string]interface{}{
		"interval_days": 0,
		"repetitions":   0,
		"ease_factor":   2.5,
		"due_at":        time.Now().UTC().Format(time.RFC3339),
	}

	rr := doJSON(t, router, http.MethodPatch, "/cards/"+card.ID.String(), body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	if store.cards[card.ID].LastReviewedAt != nil {
		t.Errorf("LastReviewedAt = %v, want nil when omitted", store.cards[card.ID].LastReviewedAt)
	}
}

func TestUpdateCard_Validation(t *testing.T) {
	userID := uuid.New()
	card := dueCard(userID)
	router := newReviewRouter(newFakeCardStore(card), userID)

	due := time.Now().UTC().Format(time.RFC3339)
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"ease factor above wire bound", map[string]interface{}{
			"interval_days": 1, "repetitions": 1, "ease_factor": 2.7, "due_at": due,
		}},
		{"ease factor below floor", map[string]interface{}{
			"interval_days": 1, "repetitions": 1, "ease_factor": 1.2, "due_at": due,
		}},
		{"negative repetitions", map[string]interface{}{
			"interval_days": 1, "repetitions": -1, "ease_factor": 2.5, "due_at": due,
		}},
		{"negative interval", map[string]interface{}{
			"interval_days": -1, "repetitions": 1, "ease_factor": 2.5, "due_at": due,
		}},
		{"missing due_at", map[string]interface{}{
			"interval_days": 1, "repetitions": 1, "ease_factor": 2.5,
		}},
		{"missing interval entirely", map[string]interface{}{
			"repetitions": 1, "ease_factor": 2.5, "due_at": due,
		}},
		{"malformed datetime", map[string]interface{}{
			"interval_days": 1, "repetitions": 1, "ease_factor": 2.5, "due_at": "not-a-date",
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPatch, "/cards/"+card.ID.String(), tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestUpdateCard_RequestIDEchoed(t *testing.T) {
	router := newReviewRouter(newFakeCardStore(), uuid.New())

	req := httptest.NewRequest(http.MethodPatch, "/cards/not-a-uuid", bytes.NewReader(nil))
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("request_id = %q, want req-123", resp.Error.RequestID)
	}
}

func TestSubmitBatch_StopsAtPersistenceFailure(t *testing.T) {
	userID := uuid.New()
	first := dueCard(userID)
	second := dueCard(userID)
	store := newFakeCardStore(first, second)
	router := newReviewRouter(store, userID)

	// Fail every write: the first item should stop the run with zero
	// submitted and the batch must be safely resubmittable.
	store.updateErr = fmt.Errorf("write refused")

	rr := doJSON(t, router, http.MethodPost, "/review/queue/submit", models.BatchReviewRequest{
		Reviews: []models.BatchReviewItem{
			{CardID: first.ID, Quality: 4},
			{CardID: second.ID, Quality: 4},
		},
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body: %s", rr.Code, rr.Body.String())
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error.Fields["submitted_count"] != "0" {
		t.Errorf("submitted_count = %q, want 0", resp.Error.Fields["submitted_count"])
	}
	if resp.Error.Fields["failed_card_id"] != first.ID.String() {
		t.Errorf("failed_card_id = %q, want %s", resp.Error.Fields["failed_card_id"], first.ID)
	}

	// Retry after the store recovers.
	store.updateErr = nil
	rr = doJSON(t, router, http.MethodPost, "/review/queue/submit", models.BatchReviewRequest{
		Reviews: []models.BatchReviewItem{
			{CardID: first.ID, Quality: 4},
			{CardID: second.ID, Quality: 4},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
}
