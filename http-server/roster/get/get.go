package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"kpi-dashboard/internal/storage"
)

type RosterLoader interface {
	LoadRoster(ctx context.Context) (*storage.Roster, error)
}

// GetRoster returns the roster the next consolidation would use.
func GetRoster(log *slog.Logger, roster RosterLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.roster.GetRoster"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		res, err := roster.LoadRoster(ctx)
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to load roster")
			if storage.IsKind(err, storage.KindRosterLoad) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, res)
	}
}
