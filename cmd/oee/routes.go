package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"oee-tracker/http-server/admin/recalculate"
	"oee-tracker/http-server/alerts/acknowledge"
	"oee-tracker/http-server/oee/calculate"
	"oee-tracker/http-server/oee/events"
	getshift "oee-tracker/http-server/shifts/get"
	getunit "oee-tracker/http-server/units/get"
	"oee-tracker/internal/config"
	"oee-tracker/internal/formula"
	"oee-tracker/internal/metrics"
	"oee-tracker/internal/middleware/auth"
	"oee-tracker/internal/service/alerts"
	"oee-tracker/internal/service/oee"
	"oee-tracker/internal/shift"
	"oee-tracker/internal/units"
)

type services struct {
	engine    *oee.Engine
	evaluator *alerts.Evaluator
	units     *units.Resolver
	shifts    *shift.Service
	formulas  *formula.SettingsCache
}

func routes(cfg config.Config, log *slog.Logger, svc services) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8081", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(metrics.Instrument)

	router.Handle("/metrics", metrics.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Post("/api/oee/machines/{machineID}/calculate", calculate.CalculateMachineDay(log, svc.engine, cfg.Location()))
	router.Post("/api/oee/quick", calculate.QuickOee(log, svc.engine, svc.formulas))

	router.Post("/api/oee/events/production", events.ProductionChanged(log, svc.engine))
	router.Post("/api/oee/events/downtime", events.DowntimeChanged(log, svc.engine))

	router.Get("/api/shifts/current", getshift.CurrentShift(log, svc.shifts))
	router.Get("/api/units/convert", getunit.ConvertUnit(svc.units))

	router.Post("/api/alerts/{id}/acknowledge", acknowledge.AcknowledgeAlert(log, svc.evaluator))

	adminRouter := chi.NewRouter()
	adminRouter.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))

	adminRouter.Post("/oee/recalculate", recalculate.Recalculate(log, svc.engine))
	adminRouter.Post("/units/refresh", recalculate.RefreshUnits(log, svc.units))
	adminRouter.Post("/formula/refresh", recalculate.RefreshFormula(svc.formulas))

	router.Mount("/api/admin", adminRouter)

	return router
}
