package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"mnemo-backend/internal/middleware"
	"mnemo-backend/internal/models"
	"mnemo-backend/internal/repository"
)

type DeckHandler struct {
	deckRepo *repository.DeckRepo
	cardRepo *repository.CardRepo
	validate *validator.Validate
}

func NewDeckHandler(deckRepo *repository.DeckRepo, cardRepo *repository.CardRepo) *DeckHandler {
	return &DeckHandler{
		deckRepo: deckRepo,
		cardRepo: cardRepo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create makes a deck and its cards in one call. Cards start with default
// scheduling state and are due immediately.
func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationFields(err), r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	deck := &models.Deck{
		UserID:    userID,
		Title:     req.Title,
		CardCount: len(req.Cards),
	}
	if err := h.deckRepo.CreateDeck(r.Context(), deck); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create deck", r))
		return
	}

	cards, err := h.cardRepo.CreateCards(r.Context(), deck.ID, userID, req.Cards)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create cards", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"deck":  deck,
		"cards": cards,
	})
}

func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	decks, err := h.deckRepo.ListDecksByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch decks", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"decks": decks})
}

func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	deck, ok := h.ownedDeck(w, r)
	if !ok {
		return
	}

	cards, _ := h.cardRepo.ListByDeck(r.Context(), deck.ID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deck":  deck,
		"cards": cards,
	})
}

func (h *DeckHandler) Stats(w http.ResponseWriter, r *http.Request) {
	deck, ok := h.ownedDeck(w, r)
	if !ok {
		return
	}

	stats, err := h.deckRepo.GetDeckStats(r.Context(), deck.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch stats", r))
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *DeckHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	deck, ok := h.ownedDeck(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.deckRepo.ToggleFavorite(r.Context(), deck.ID, userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update favorite", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Favorite toggled"})
}

func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	deck, ok := h.ownedDeck(w, r)
	if !ok {
		return
	}

	if err := h.deckRepo.DeleteDeck(r.Context(), deck.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete deck", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Deck deleted"})
}

// ownedDeck parses the deck id, loads the deck, and enforces ownership.
// Writes the error response itself when the deck cannot be used.
func (h *DeckHandler) ownedDeck(w http.ResponseWriter, r *http.Request) (*models.Deck, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid deck ID", r))
		return nil, false
	}

	deck, err := h.deckRepo.GetDeckByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Deck not found", r))
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())
	if deck.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return deck, true
}
