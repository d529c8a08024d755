package formula

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Mode string

const (
	ModeStandard Mode = "standard"
	ModeCustom   Mode = "custom"
)

type TargetMode string

const (
	TargetStatic  TargetMode = "static"
	TargetDynamic TargetMode = "dynamic"
	TargetCustom  TargetMode = "custom"
)

type MetricFormula struct {
	Mode       Mode   `json:"mode"`
	Expression string `json:"expression"`
}

type TargetFormula struct {
	Mode        TargetMode `json:"mode"`
	Expression  string     `json:"expression"`
	StaticValue float64    `json:"static_value"`
}

// Config is the formula setup the engine calculates with. It is built by the settings layer
// and passed in explicitly.
type Config struct {
	Availability MetricFormula `json:"availability"`
	Performance  MetricFormula `json:"performance"`
	Quality      MetricFormula `json:"quality"`
	Target       TargetFormula `json:"target"`

	ExcludeBreaks               bool `json:"exclude_breaks"`
	IncludeRejectsInPerformance bool `json:"include_rejects_in_performance"`
}

func DefaultConfig() Config {
	return Config{
		Availability:                MetricFormula{Mode: ModeStandard},
		Performance:                 MetricFormula{Mode: ModeStandard},
		Quality:                     MetricFormula{Mode: ModeStandard},
		Target:                      TargetFormula{Mode: TargetStatic},
		ExcludeBreaks:               true,
		IncludeRejectsInPerformance: true,
	}
}

// Settings keys read by ConfigFromSettings.
const (
	KeyAvailabilityMode       = "formula_availability_mode"
	KeyAvailabilityExpression = "formula_availability_expression"
	KeyPerformanceMode        = "formula_performance_mode"
	KeyPerformanceExpression  = "formula_performance_expression"
	KeyQualityMode            = "formula_quality_mode"
	KeyQualityExpression      = "formula_quality_expression"
	KeyTargetMode             = "formula_target_mode"
	KeyTargetExpression       = "formula_target_expression"
	KeyTargetStaticValue      = "formula_target_static_value"
	KeyExcludeBreaks          = "formula_availability_exclude_breaks"
	KeyIncludeRejects         = "formula_performance_include_rejects"
)

var SettingsKeys = []string{
	KeyAvailabilityMode, KeyAvailabilityExpression,
	KeyPerformanceMode, KeyPerformanceExpression,
	KeyQualityMode, KeyQualityExpression,
	KeyTargetMode, KeyTargetExpression, KeyTargetStaticValue,
	KeyExcludeBreaks, KeyIncludeRejects,
}

// ConfigFromSettings maps keyed settings onto a Config. Missing or unrecognised values keep the defaults.
func ConfigFromSettings(settings map[string]string) Config {
	cfg := DefaultConfig()

	metric := func(modeKey, exprKey string) MetricFormula {
		f := MetricFormula{Mode: ModeStandard, Expression: strings.TrimSpace(settings[exprKey])}
		if Mode(strings.ToLower(strings.TrimSpace(settings[modeKey]))) == ModeCustom {
			f.Mode = ModeCustom
		}
		return f
	}

	cfg.Availability = metric(KeyAvailabilityMode, KeyAvailabilityExpression)
	cfg.Performance = metric(KeyPerformanceMode, KeyPerformanceExpression)
	cfg.Quality = metric(KeyQualityMode, KeyQualityExpression)

	switch TargetMode(strings.ToLower(strings.TrimSpace(settings[KeyTargetMode]))) {
	case TargetDynamic:
		cfg.Target.Mode = TargetDynamic
	case TargetCustom:
		cfg.Target.Mode = TargetCustom
	}
	cfg.Target.Expression = strings.TrimSpace(settings[KeyTargetExpression])
	if v, err := strconv.ParseFloat(strings.TrimSpace(settings[KeyTargetStaticValue]), 64); err == nil {
		cfg.Target.StaticValue = v
	}

	if v, ok := parseBool(settings[KeyExcludeBreaks]); ok {
		cfg.ExcludeBreaks = v
	}
	if v, ok := parseBool(settings[KeyIncludeRejects]); ok {
		cfg.IncludeRejectsInPerformance = v
	}

	return cfg
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// ConfigSource is what the engine and the alert evaluator depend on.
type ConfigSource interface {
	FormulaConfig(ctx context.Context) (Config, error)
}

// StaticConfig serves a fixed Config.
type StaticConfig Config

func (c StaticConfig) FormulaConfig(context.Context) (Config, error) {
	return Config(c), nil
}

type SettingsStore interface {
	GetSettings(ctx context.Context, keys []string) (map[string]string, error)
}

// SettingsCache loads the formula settings from the store and keeps the built Config for ttl.
// Writers of the settings call Invalidate.
type SettingsCache struct {
	store SettingsStore
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	cached   Config
	loadedAt time.Time
	valid    bool
}

func NewSettingsCache(store SettingsStore, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &SettingsCache{store: store, ttl: ttl, now: time.Now}
}

func (c *SettingsCache) FormulaConfig(ctx context.Context) (Config, error) {
	const op = "formula.SettingsCache.FormulaConfig"

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.now().Sub(c.loadedAt) < c.ttl {
		return c.cached, nil
	}

	settings, err := c.store.GetSettings(ctx, SettingsKeys)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", op, err)
	}

	c.cached = ConfigFromSettings(settings)
	c.loadedAt = c.now()
	c.valid = true

	return c.cached, nil
}

func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
