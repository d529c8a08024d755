package calculate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"oee-tracker/internal/formula"
	"oee-tracker/internal/storage"
)

type MachineCalculator interface {
	CalculateForMachine(ctx context.Context, machineID int64, date time.Time) (storage.DailyOeeMetric, error)
}

type QuickCalculator interface {
	CalculateOee(vars formula.Variables, cfg formula.Config) formula.Scores
}

// CalculateMachineDay recomputes one machine-day. date defaults to today.
func CalculateMachineDay(log *slog.Logger, calc MachineCalculator, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oee.CalculateMachineDay"

		machineID, err := strconv.ParseInt(chi.URLParam(r, "machineID"), 10, 64)
		if err != nil || machineID <= 0 {
			http.Error(w, "Invalid machine id", http.StatusBadRequest)
			return
		}

		date := time.Now().In(loc)
		if raw := r.URL.Query().Get("date"); raw != "" {
			date, err = time.ParseInLocation(time.DateOnly, raw, loc)
			if err != nil {
				http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		metric, err := calc.CalculateForMachine(ctx, machineID, date)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.With(slog.String("op", op), slog.Int64("machine_id", machineID)).Warn("Machine not found")
				http.Error(w, "Machine not found", http.StatusNotFound)
				return
			}

			log.With(
				slog.String("op", op),
				slog.Int64("machine_id", machineID),
				slog.String("error", err.Error()),
			).Error("Failed to calculate daily OEE")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, metric)
	}
}

type QuickRequest struct {
	Variables formula.Variables `json:"variables"`
	Config    *formula.Config   `json:"config,omitempty"`
}

// QuickOee scores an arbitrary variable set without touching daily records.
func QuickOee(log *slog.Logger, calc QuickCalculator, configs formula.ConfigSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oee.QuickOee"

		var req QuickRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("Invalid request body")
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		var cfg formula.Config
		if req.Config != nil {
			cfg = *req.Config
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			var err error
			cfg, err = configs.FormulaConfig(ctx)
			if err != nil {
				log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to load formula config")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
		}

		render.JSON(w, r, calc.CalculateOee(req.Variables, cfg))
	}
}
