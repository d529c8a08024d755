package recalculate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"oee-tracker/internal/service/oee"
	"oee-tracker/internal/storage"
)

type BatchRecalculator interface {
	Recalculate(ctx context.Context, req oee.RecalculateRequest) (oee.BatchReport, error)
}

type UnitRefresher interface {
	RefreshCache(ctx context.Context) error
}

type FormulaRefresher interface {
	Invalidate()
}

const (
	maxDays       = 366
	batchDeadline = 10 * time.Minute
)

// Recalculate runs a batch recompute. It stops issuing work when the request goes away.
func Recalculate(log *slog.Logger, recalc BatchRecalculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.Recalculate"

		var req oee.RecalculateRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("Invalid request body")
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Days < 1 || req.Days > maxDays {
			http.Error(w, "days must be between 1 and 366", http.StatusBadRequest)
			return
		}

		// A long batch outlives the server write timeout.
		if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(batchDeadline)); err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("Cannot extend write deadline")
		}

		report, err := recalc.Recalculate(r.Context(), req)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Machine not found", http.StatusNotFound)
				return
			}

			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Recalculation failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.With(slog.String("op", op)).Info("Recalculation requested",
			slog.Int("days", req.Days),
			slog.Int("succeeded", report.Succeeded),
			slog.Int("failed", report.Failed),
		)

		render.JSON(w, r, report)
	}
}

type RefreshResponse struct {
	Status string `json:"status"`
}

func RefreshUnits(log *slog.Logger, units UnitRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.RefreshUnits"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := units.RefreshCache(ctx); err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to refresh unit conversions")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, RefreshResponse{Status: "refreshed"})
	}
}

// RefreshFormula drops the cached formula settings; the next calculation reloads them.
func RefreshFormula(formulas FormulaRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formulas.Invalidate()
		render.JSON(w, r, RefreshResponse{Status: "invalidated"})
	}
}
