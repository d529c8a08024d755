package units

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"oee-tracker/internal/constants"
	"oee-tracker/internal/metrics"
	"oee-tracker/internal/storage"
)

var ErrCategoryMismatch = errors.New("units belong to different categories")

type UnitStorage interface {
	GetUnitConversions(ctx context.Context) ([]storage.UnitConversionEntry, error)
}

type unit struct {
	factor   float64
	category string
}

// Resolver converts quantities to the base unit of their category. Lookups are served from an
// in-memory table rebuilt only by RefreshCache.
type Resolver struct {
	storage UnitStorage
	log     *slog.Logger

	mu    sync.RWMutex
	table map[string]unit
}

func NewResolver(storage UnitStorage, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		storage: storage,
		log:     log,
		table:   buildTable(nil),
	}
}

// buildTable layers stored entries over the defaults, code by code.
func buildTable(entries []storage.UnitConversionEntry) map[string]unit {
	t := make(map[string]unit, len(constants.DefaultUnits)*2+len(entries)*2)
	add := func(e storage.UnitConversionEntry) {
		u := unit{factor: e.ToBaseFactor, category: e.Category}
		if code := normalize(e.Code); code != "" {
			t[code] = u
		}
		if e.Alias != nil {
			if a := normalize(*e.Alias); a != "" {
				t[a] = u
			}
		}
	}

	for _, e := range constants.DefaultUnits {
		add(e)
	}
	for _, e := range entries {
		if e.ToBaseFactor <= 0 {
			continue
		}
		add(e)
	}
	return t
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// RefreshCache reloads the conversion entries. On error the current table is kept.
func (r *Resolver) RefreshCache(ctx context.Context) error {
	const op = "units.Resolver.RefreshCache"

	entries, err := r.storage.GetUnitConversions(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	t := buildTable(entries)

	r.mu.Lock()
	r.table = t
	r.mu.Unlock()

	r.log.Info("unit conversions loaded", slog.Int("entries", len(entries)), slog.Int("codes", len(t)))
	return nil
}

func (r *Resolver) lookup(code string) (unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.table[normalize(code)]
	return u, ok
}

// Factor returns the multiplier to the base unit for a code or alias.
func (r *Resolver) Factor(code string) (float64, bool) {
	u, ok := r.lookup(code)
	return u.factor, ok
}

func (r *Resolver) Category(code string) (string, bool) {
	u, ok := r.lookup(code)
	return u.category, ok
}

// ToBaseUnit converts quantity to the base unit. An unknown code passes the quantity through.
func (r *Resolver) ToBaseUnit(quantity float64, code string) float64 {
	u, ok := r.lookup(code)
	if !ok {
		r.log.Info("unknown unit, using factor 1", slog.String("unit", code))
		metrics.IncUnitFallback()
		return quantity
	}
	return quantity * u.factor
}

// Convert moves a quantity between two known units of the same category.
func (r *Resolver) Convert(quantity float64, from, to string) (float64, error) {
	const op = "units.Resolver.Convert"

	f, ok := r.lookup(from)
	if !ok {
		return 0, fmt.Errorf("%s: unknown unit %q", op, from)
	}
	t, ok := r.lookup(to)
	if !ok {
		return 0, fmt.Errorf("%s: unknown unit %q", op, to)
	}
	if f.category != t.category {
		return 0, fmt.Errorf("%s: %s is %s, %s is %s: %w", op, from, f.category, to, t.category, ErrCategoryMismatch)
	}

	return quantity * f.factor / t.factor, nil
}
