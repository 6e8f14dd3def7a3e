package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mnemo-backend/internal/handlers"
	"mnemo-backend/internal/middleware"
	"mnemo-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	deckHandler *handlers.DeckHandler,
	reviewHandler *handlers.ReviewHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Review submissions are cheap but clients can loop; cap per IP.
	reviewLimiter := middleware.NewRateLimiter(120, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Flashcard Routes ────
		r.Route("/flashcards", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Route("/decks", func(r chi.Router) {
				r.Get("/", deckHandler.List)
				r.Post("/", deckHandler.Create)
				r.Get("/{id}", deckHandler.Get)
				r.Get("/{id}/stats", deckHandler.Stats)
				r.Put("/{id}/favorite", deckHandler.ToggleFavorite)
				r.Delete("/{id}", deckHandler.Delete)
			})

			r.Route("/cards", func(r chi.Router) {
				r.Patch("/{id}", reviewHandler.UpdateCard)

				r.Group(func(r chi.Router) {
					r.Use(reviewLimiter.Middleware)
					r.Post("/{id}/review", reviewHandler.SubmitReview)
				})
			})

			r.Route("/review", func(r chi.Router) {
				r.Get("/queue", reviewHandler.Queue)

				r.Group(func(r chi.Router) {
					r.Use(reviewLimiter.Middleware)
					r.Post("/queue/submit", reviewHandler.SubmitBatch)
				})
			})
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/review-stats", dashboardHandler.ReviewStats)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
