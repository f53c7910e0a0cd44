package save

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"kpi-dashboard/internal/service/loader"
	"kpi-dashboard/internal/service/roster"
	"kpi-dashboard/internal/storage"
)

type RosterReplacer interface {
	ReplaceRoster(ctx context.Context, rules []storage.AssignmentRule) error
}

type ruleRequest struct {
	Operator    string `json:"operator"`
	Coordinator string `json:"coordinator"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Shift       string `json:"shift"`
	Machine     string `json:"machine"`
}

type Request struct {
	Rules []ruleRequest `json:"rules"`
}

type Response struct {
	Status string `json:"status"`
	Rules  int    `json:"rules"`
}

// SaveRoster replaces the roster table. The body is either JSON ({"rules": [...]},
// dates as YYYY-MM-DD) or a multipart form with the roster sheet in field "file".
// Overlapping or incomplete rules are rejected before anything is written.
func SaveRoster(log *slog.Logger, store RosterReplacer, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.roster.SaveRoster"
		log := log.With(slog.String("op", op))

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		var rules []storage.AssignmentRule
		var err error
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			rules, err = rulesFromFile(r, maxBytes)
		} else {
			rules, err = rulesFromJSON(r)
		}
		if err != nil {
			log.Warn("rejected roster", slog.String("error", err.Error()))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := store.ReplaceRoster(ctx, rules); err != nil {
			log.Error("failed to save roster", slog.String("error", err.Error()))
			http.Error(w, "failed to save roster", http.StatusInternalServerError)
			return
		}

		log.Info("roster replaced", slog.Int("rules", len(rules)))
		render.JSON(w, r, Response{Status: "saved", Rules: len(rules)})
	}
}

func rulesFromJSON(r *http.Request) ([]storage.AssignmentRule, error) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	rules := make([]storage.AssignmentRule, 0, len(req.Rules))
	for i, rr := range req.Rules {
		start, err := time.Parse(time.DateOnly, strings.TrimSpace(rr.Start))
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid start date %q", i+1, rr.Start)
		}
		end, err := time.Parse(time.DateOnly, strings.TrimSpace(rr.End))
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid end date %q", i+1, rr.End)
		}
		rules = append(rules, storage.AssignmentRule{
			Operator:    strings.TrimSpace(rr.Operator),
			Coordinator: strings.TrimSpace(rr.Coordinator),
			Start:       start,
			End:         end,
			Shift:       strings.ToUpper(strings.TrimSpace(rr.Shift)),
			Machine:     strings.TrimSpace(rr.Machine),
		})
	}

	if err := roster.Validate(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func rulesFromFile(r *http.Request, maxBytes int64) ([]storage.AssignmentRule, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	f, h, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing roster file: %w", err)
	}
	defer f.Close()

	t, err := loader.Read(h.Filename, f, 0)
	if err != nil {
		return nil, err
	}
	return roster.FromTable(t)
}
