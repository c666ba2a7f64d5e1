package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"market-live/auth"
	apperrors "market-live/errors"
	"market-live/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the HTTP surface: the websocket endpoint, the account
// endpoints feeding it tokens, and a liveness probe.
func NewRouter(log *slog.Logger, handler *Handler, authService *services.AuthService) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/ws", handler.ServeHTTP)
	r.Post("/register", registerHandler(log, authService))
	r.Post("/login", loginHandler(log, authService))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func registerHandler(log *slog.Logger, authService *services.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed body")
			return
		}

		id, err := authService.Register(req)
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			writeJSONError(w, http.StatusConflict, err.Error())
		case err != nil:
			writeJSONError(w, http.StatusBadRequest, err.Error())
		default:
			writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		}
	}
}

func loginHandler(log *slog.Logger, authService *services.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "malformed body")
			return
		}

		token, err := authService.Login(req)
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			writeJSONError(w, http.StatusUnauthorized, err.Error())
		case err != nil:
			writeJSONError(w, http.StatusBadRequest, err.Error())
		default:
			writeJSON(w, http.StatusOK, map[string]string{"token": token})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
