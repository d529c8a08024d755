package events

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"oee-tracker/internal/storage"
)

type ChangeHooks interface {
	OnProductionChanged(ctx context.Context, machineID int64, at time.Time, previousAt *time.Time) error
	OnDowntimeChanged(ctx context.Context, machineID int64, at time.Time, previousAt *time.Time) error
}

// ChangeRequest reports a created, updated or deleted record. PreviousAt is the record's old
// timestamp when an update moved it.
type ChangeRequest struct {
	MachineID  int64      `json:"machine_id"`
	At         time.Time  `json:"at"`
	PreviousAt *time.Time `json:"previous_at,omitempty"`
}

type Response struct {
	Status string `json:"status"`
}

func ProductionChanged(log *slog.Logger, hooks ChangeHooks) http.HandlerFunc {
	return changed(log, "handlers.oee.ProductionChanged", hooks.OnProductionChanged)
}

func DowntimeChanged(log *slog.Logger, hooks ChangeHooks) http.HandlerFunc {
	return changed(log, "handlers.oee.DowntimeChanged", hooks.OnDowntimeChanged)
}

func changed(log *slog.Logger, op string, hook func(context.Context, int64, time.Time, *time.Time) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangeRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Warn("Invalid request body")
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.MachineID <= 0 || req.At.IsZero() {
			http.Error(w, "machine_id and at are required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := hook(ctx, req.MachineID, req.At, req.PreviousAt); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Machine not found", http.StatusNotFound)
				return
			}

			log.With(
				slog.String("op", op),
				slog.Int64("machine_id", req.MachineID),
				slog.String("error", err.Error()),
			).Error("Failed to recompute affected days")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, r, Response{Status: "recalculated"})
	}
}
