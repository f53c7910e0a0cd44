package consolidate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/consolidate"
	"kpi-dashboard/internal/session"
	"kpi-dashboard/internal/storage"
)

type Consolidator interface {
	Consolidate(ctx context.Context, uploads []consolidate.Upload) (*storage.ConsolidatedDataset, error)
}

type SessionCreator interface {
	Create(ds *storage.ConsolidatedDataset) (*session.Entry, error)
}

type Response struct {
	SessionID string               `json:"session_id"`
	LoadedAt  time.Time            `json:"loaded_at"`
	RowCounts map[string]int       `json:"row_counts"`
	Reports   []storage.FileReport `json:"reports"`
}

// Consolidate accepts a multipart form whose file fields are named "<machine>/<indicator>",
// e.g. "KDF-7/MTBF", runs the pipeline and caches the result as a new session.
func Consolidate(log *slog.Logger, cons Consolidator, sessions SessionCreator, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.consolidate.Consolidate"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			log.Warn("failed to parse multipart form", slog.String("error", err.Error()))
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		files := map[string]map[string]consolidate.Upload{}
		for field, headers := range r.MultipartForm.File {
			machine, indicator, err := parseField(field)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if len(headers) != 1 {
				http.Error(w, fmt.Sprintf("field %q must carry exactly one file", field), http.StatusBadRequest)
				return
			}

			content, err := readFile(headers[0])
			if err != nil {
				log.Error("failed to read upload", slog.String("field", field), slog.String("error", err.Error()))
				http.Error(w, "failed to read upload", http.StatusBadRequest)
				return
			}

			if files[machine] == nil {
				files[machine] = map[string]consolidate.Upload{}
			}
			files[machine][indicator] = consolidate.Upload{Filename: headers[0].Filename, Content: content}
		}

		uploads := consolidate.UploadsFromMap(files)
		if len(uploads) == 0 {
			http.Error(w, "no files uploaded", http.StatusBadRequest)
			return
		}

		ds, err := cons.Consolidate(r.Context(), uploads)
		if err != nil {
			if storage.IsKind(err, storage.KindRosterLoad) {
				log.Error("roster could not be loaded", slog.String("error", err.Error()))
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			log.Error("consolidation failed", slog.String("error", err.Error()))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		entry, err := sessions.Create(ds)
		if err != nil {
			log.Error("failed to store session", slog.String("error", err.Error()))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.Info("consolidation finished",
			slog.String("session_id", entry.ID),
			slog.Int("files", len(uploads)),
			slog.Any("rows", ds.RowCounts()),
		)

		render.JSON(w, r, Response{
			SessionID: entry.ID,
			LoadedAt:  entry.LoadedAt,
			RowCounts: ds.RowCounts(),
			Reports:   ds.Reports,
		})
	}
}

func parseField(field string) (machine, indicator string, err error) {
	machine, name, ok := strings.Cut(field, "/")
	if !ok || machine == "" || name == "" {
		return "", "", fmt.Errorf("field %q must be named '<machine>/<indicator>'", field)
	}
	indicator, ok = constants.NormalizeIndicator(name)
	if !ok {
		return "", "", fmt.Errorf("unknown indicator %q in field %q", name, field)
	}
	return strings.TrimSpace(machine), indicator, nil
}

func readFile(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
