package get

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/analytics"
	"kpi-dashboard/internal/session"
	"kpi-dashboard/internal/storage"
)

type SessionProvider interface {
	Get(id string) (*session.Entry, error)
}

type ResponseSession struct {
	ID        string                       `json:"id"`
	LoadedAt  time.Time                    `json:"loaded_at"`
	RowCounts map[string]int               `json:"row_counts"`
	Dataset   *storage.ConsolidatedDataset `json:"dataset"`
}

func GetSession(log *slog.Logger, sessions SessionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.GetSession"

		entry, ok := lookup(w, r, log.With(slog.String("op", op)), sessions)
		if !ok {
			return
		}

		render.JSON(w, r, ResponseSession{
			ID:        entry.ID,
			LoadedAt:  entry.LoadedAt,
			RowCounts: entry.Dataset.RowCounts(),
			Dataset:   entry.Dataset,
		})
	}
}

func GetReports(log *slog.Logger, sessions SessionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.GetReports"

		entry, ok := lookup(w, r, log.With(slog.String("op", op)), sessions)
		if !ok {
			return
		}

		render.JSON(w, r, entry.Reports())
	}
}

type ResponseAnalytics struct {
	analytics.Report
	PercentileRank *float64 `json:"percentile_rank,omitempty"`
}

// GetAnalytics builds the aggregate report of one indicator table. Query
// parameters machine, shift, operator and coordinator (repeatable) and
// from/to (YYYY-MM-DD) narrow the records first. With value set, the
// response also carries that value's percentile rank among the filtered records.
func GetAnalytics(log *slog.Logger, sessions SessionProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.GetAnalytics"
		log := log.With(slog.String("op", op))

		q := r.URL.Query()
		from, to, err := dateRange(q.Get("from"), q.Get("to"), time.Time{}, time.Time{})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var rankOf *float64
		if raw := q.Get("value"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				http.Error(w, "invalid value", http.StatusBadRequest)
				return
			}
			rankOf = &v
		}

		entry, ok := lookup(w, r, log, sessions)
		if !ok {
			return
		}
		def, records, ok := indicatorTable(w, r, entry)
		if !ok {
			return
		}

		filter := analytics.Filter{
			Machines:     q["machine"],
			Shifts:       q["shift"],
			Operators:    q["operator"],
			Coordinators: q["coordinator"],
			From:         from,
			To:           to,
		}

		filtered := filter.Apply(records)
		resp := ResponseAnalytics{Report: analytics.Build(def, filtered)}

		if rankOf != nil {
			rank := analytics.PercentileRank(storage.Values(filtered), *rankOf)
			resp.PercentileRank = &rank
		}

		render.JSON(w, r, resp)
	}
}

// GetCompleteness reports day coverage of an indicator table. The window defaults
// to the configured expected range and can be overridden with from/to.
func GetCompleteness(log *slog.Logger, sessions SessionProvider, expectedFrom, expectedTo time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.GetCompleteness"
		log := log.With(slog.String("op", op))

		from, to, err := dateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), expectedFrom, expectedTo)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if from.IsZero() || to.IsZero() {
			http.Error(w, "expected window is not configured, pass from and to", http.StatusBadRequest)
			return
		}

		entry, ok := lookup(w, r, log, sessions)
		if !ok {
			return
		}
		_, records, ok := indicatorTable(w, r, entry)
		if !ok {
			return
		}

		render.JSON(w, r, analytics.DataCompleteness(records, from, to))
	}
}

func lookup(w http.ResponseWriter, r *http.Request, log *slog.Logger, sessions SessionProvider) (*session.Entry, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing session id", http.StatusBadRequest)
		return nil, false
	}

	entry, err := sessions.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			log.Warn("session not found", slog.String("session_id", id))
			http.Error(w, "Session not found", http.StatusNotFound)
			return nil, false
		}
		log.Error("failed to fetch session", slog.String("session_id", id), slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return entry, true
}

func indicatorTable(w http.ResponseWriter, r *http.Request, entry *session.Entry) (constants.IndicatorDefinition, []storage.IndicatorRecord, bool) {
	raw := chi.URLParam(r, "indicator")
	name, ok := constants.NormalizeIndicator(raw)
	if !ok {
		http.Error(w, "Unknown indicator '"+raw+"', valid: "+strings.Join(constants.IndicatorNames(), ", "), http.StatusBadRequest)
		return constants.IndicatorDefinition{}, nil, false
	}

	records, ok := entry.Dataset.Tables[name]
	if !ok {
		http.Error(w, "No data loaded for "+name, http.StatusNotFound)
		return constants.IndicatorDefinition{}, nil, false
	}

	def, _ := constants.Indicator(name)
	return def, records, true
}

func dateRange(fromStr, toStr string, from, to time.Time) (time.Time, time.Time, error) {
	var err error
	if fromStr != "" {
		if from, err = time.Parse(time.DateOnly, fromStr); err != nil {
			return from, to, errors.New("invalid from date")
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.DateOnly, toStr); err != nil {
			return from, to, errors.New("invalid to date")
		}
	}
	return from, to, nil
}
