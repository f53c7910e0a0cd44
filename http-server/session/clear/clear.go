package clear

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpi-dashboard/internal/storage"
)

type SessionClearer interface {
	Clear(id string) error
}

func ClearSession(log *slog.Logger, sessions SessionClearer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.ClearSession"

		id := chi.URLParam(r, "id")
		if err := sessions.Clear(id); err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to clear session")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.Info("session cleared", slog.String("session_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
