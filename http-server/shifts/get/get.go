package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"oee-tracker/internal/shift"
	"oee-tracker/internal/storage"
)

type ShiftResolver interface {
	Current(ctx context.Context, machineID int64, at time.Time) (shift.Context, bool, error)
}

type CurrentResponse struct {
	Active bool           `json:"active"`
	Shift  *shift.Context `json:"shift,omitempty"`
}

// CurrentShift resolves the shift of a machine at ?at= (RFC 3339), or now.
func CurrentShift(log *slog.Logger, resolver ShiftResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.shifts.CurrentShift"

		machineID, err := strconv.ParseInt(r.URL.Query().Get("machine_id"), 10, 64)
		if err != nil || machineID <= 0 {
			http.Error(w, "Missing or invalid query parameter 'machine_id'", http.StatusBadRequest)
			return
		}

		at := time.Now()
		if raw := r.URL.Query().Get("at"); raw != "" {
			at, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "Invalid 'at', expected RFC 3339", http.StatusBadRequest)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		sc, ok, err := resolver.Current(ctx, machineID, at)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Machine not found", http.StatusNotFound)
				return
			}

			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("Failed to resolve shift")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := CurrentResponse{Active: ok}
		if ok {
			resp.Shift = &sc
		}
		render.JSON(w, r, resp)
	}
}
