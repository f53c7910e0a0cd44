package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	consolidatehandler "kpi-dashboard/http-server/consolidate"
	exporthandler "kpi-dashboard/http-server/generate-report/generate-excel"
	getindicators "kpi-dashboard/http-server/indicators/get"
	getroster "kpi-dashboard/http-server/roster/get"
	saveroster "kpi-dashboard/http-server/roster/save"
	clearsession "kpi-dashboard/http-server/session/clear"
	getsession "kpi-dashboard/http-server/session/get"
	"kpi-dashboard/internal/config"
	"kpi-dashboard/internal/middleware/auth"
	"kpi-dashboard/internal/service/consolidate"
	excelsvc "kpi-dashboard/internal/service/generate-excel"
	"kpi-dashboard/internal/session"
	"kpi-dashboard/internal/storage/sqlstore"
)

type deps struct {
	storage      *sqlstore.Storage
	roster       consolidate.RosterSource
	consolidator *consolidate.Service
	sessions     *session.Store
	excel        *excelsvc.GenerateExcelService
	// expected reporting window, already validated by config
	expectedFrom time.Time
	expectedTo   time.Time
}

func routes(cfg config.Config, log *slog.Logger, d deps) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	maxUpload := cfg.HTTPServer.MaxUploadMB << 20

	router.Get("/api/indicators", getindicators.GetIndicators(log))

	router.Post("/api/consolidate", consolidatehandler.Consolidate(log, d.consolidator, d.sessions, maxUpload))

	router.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", getsession.GetSession(log, d.sessions))
		r.Delete("/", clearsession.ClearSession(log, d.sessions))
		r.Get("/reports", getsession.GetReports(log, d.sessions))
		r.Get("/analytics/{indicator}", getsession.GetAnalytics(log, d.sessions))
		r.Get("/completeness/{indicator}", getsession.GetCompleteness(log, d.sessions, d.expectedFrom, d.expectedTo))
		r.Get("/export", exporthandler.GenerateReportExcel(log, d.excel))
	})

	adminRouter := chi.NewRouter()
	adminRouter.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))

	adminRouter.Get("/roster", getroster.GetRoster(log, d.roster))
	// the table is only editable when consolidation reads from it
	if cfg.Roster.Source == "db" {
		adminRouter.Put("/roster", saveroster.SaveRoster(log, d.storage, maxUpload))
	} else {
		adminRouter.Put("/roster", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "roster is read from "+cfg.Roster.Path+", switch roster.source to db to edit it", http.StatusConflict)
		})
	}

	router.Mount("/api/admin", adminRouter)

	return router
}
