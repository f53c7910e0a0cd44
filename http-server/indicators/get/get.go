package get

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"kpi-dashboard/internal/constants"
)

type Response struct {
	Indicators []constants.IndicatorDefinition `json:"indicators"`
	Machines   []string                        `json:"machines"`
	Shifts     []string                        `json:"shifts"`
	Extensions []string                        `json:"extensions"`
}

func GetIndicators(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, Response{
			Indicators: constants.Indicators,
			Machines:   constants.Machines,
			Shifts:     constants.Shifts,
			Extensions: constants.AllowedExtensions,
		})
	}
}
