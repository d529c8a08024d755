package formula

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestParse_Eval(t *testing.T) {
	vars := Variables{"run_time": 3600, "good_count": 90, "total_count": 100}

	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 / 4", 2.5},
		{"-2 + 5", 3},
		{"--2", 2},
		{"2 - -3", 5},
		{"good_count / total_count * 100", 90},
		{"run_time / 60", 60},
		{"1.5e2", 150},
		{"min(good_count, 50)", 50},
		{"max(1, 2, 3)", 3},
		{"abs(-4)", 4},
		{"ROUND(2.6)", 3},
		{"10 - 2 - 3", 5},
		{"64 / 4 / 2", 8},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := Parse(tt.expr)
			require.NoError(t, err)

			got, err := expr.Eval(vars)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, src := range []string{
		"",
		"1 +",
		"(1 + 2",
		"1 2",
		"run_time ; 1",
		"pow(2, 3)",
		"min(1)",
		"1..2",
		"good_count % 2",
		strings.Repeat("(", 100) + "1" + strings.Repeat(")", 100),
		strings.Repeat("1+", 600) + "1",
	} {
		_, err := Parse(src)
		assert.Error(t, err, "expected parse error for %q", src)
	}
}

func TestEval_Errors(t *testing.T) {
	expr, err := Parse("1 / 0")
	require.NoError(t, err)
	_, err = expr.Eval(Variables{})
	assert.True(t, errors.Is(err, ErrDivisionByZero))

	expr, err = Parse("unknown_var * 2")
	require.NoError(t, err)
	_, err = expr.Eval(Variables{})
	assert.True(t, errors.Is(err, ErrUnknownVariable))

	expr, err = Parse("1e308 * 1e308")
	require.NoError(t, err)
	_, err = expr.Eval(Variables{})
	assert.True(t, errors.Is(err, ErrNonFiniteResult))
}

func TestEvaluator_CustomDivisionByZeroFallsBackToZero(t *testing.T) {
	log, buf := bufferLogger()
	e := NewEvaluator(log)

	got := e.Evaluate(MetricAvailability, MetricFormula{Mode: ModeCustom, Expression: "1/0"}, StandardAvailability, Variables{})

	assert.Equal(t, 0.0, got)
	assert.Contains(t, buf.String(), "formula evaluation failed")
	assert.Contains(t, buf.String(), "1/0")
	assert.Contains(t, buf.String(), "division by zero")
}

func TestEvaluator_CustomExpression(t *testing.T) {
	e := NewEvaluator(slog.Default())
	vars := Inputs{RunTime: 100, PlannedProductionTime: 200}.Variables()

	got := e.Evaluate(MetricAvailability, MetricFormula{Mode: ModeCustom, Expression: "run_time / planned_production_time * 50"}, StandardAvailability, vars)

	assert.InDelta(t, 25, got, 1e-9)
}

func TestEvaluator_StandardWhenCustomExpressionEmpty(t *testing.T) {
	e := NewEvaluator(slog.Default())
	vars := Inputs{RunTime: 50, PlannedProductionTime: 100}.Variables()

	got := e.Evaluate(MetricAvailability, MetricFormula{Mode: ModeCustom, Expression: "  "}, StandardAvailability, vars)

	assert.InDelta(t, 50, got, 1e-9)
}

func TestEvaluator_CallerExtrasWin(t *testing.T) {
	e := NewEvaluator(slog.Default())
	vars := Inputs{GoodCount: 10, TotalCount: 20}.Variables().Merge(Variables{"good_count": 15, "scrap_weight": 2})

	got := e.Evaluate(MetricQuality, MetricFormula{Mode: ModeCustom, Expression: "good_count / total_count * 100 - scrap_weight"}, StandardQuality, vars)

	assert.InDelta(t, 73, got, 1e-9)
}

func TestEvaluator_PlannedProductionTimeClampedToOne(t *testing.T) {
	e := NewEvaluator(slog.Default())
	vars := Variables{"run_time": 30, "planned_production_time": 0}

	standard := e.Evaluate(MetricAvailability, MetricFormula{Mode: ModeStandard}, StandardAvailability, vars)
	custom := e.Evaluate(MetricAvailability, MetricFormula{Mode: ModeCustom, Expression: "run_time / planned_production_time"}, StandardAvailability, vars)

	assert.False(t, math.IsInf(standard, 0) || math.IsNaN(standard))
	assert.InDelta(t, 3000, standard, 1e-9)
	assert.InDelta(t, 30, custom, 1e-9)
}

func TestStandardFormulas_Guards(t *testing.T) {
	assert.Equal(t, 0.0, StandardPerformance(Variables{"run_time": 0, "standard_time_produced": 100}))
	assert.Equal(t, 0.0, StandardPerformance(Variables{"run_time": -5, "standard_time_produced": 100}))
	assert.Equal(t, 0.0, StandardQuality(Variables{"total_count": 0, "good_count": 0}))
}

func TestScores_FailureInOneMetricDoesNotBlockOthers(t *testing.T) {
	e := NewEvaluator(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	cfg := DefaultConfig()
	cfg.Performance = MetricFormula{Mode: ModeCustom, Expression: "standard_time_produced / ("}

	s := e.Scores(cfg, Inputs{RunTime: 90, PlannedProductionTime: 100, StandardTimeProduced: 45, GoodCount: 8, TotalCount: 10}.Variables())

	assert.InDelta(t, 90, s.Availability, 1e-9)
	assert.Equal(t, 0.0, s.Performance)
	assert.InDelta(t, 80, s.Quality, 1e-9)
	assert.Equal(t, 0.0, s.Oee)
}

func TestScores_OeeIsProductOverTenThousand(t *testing.T) {
	e := NewEvaluator(slog.Default())

	s := e.Scores(DefaultConfig(), Inputs{
		RunTime: 26100, PlannedProductionTime: 27000, StandardTimeProduced: 23040,
		GoodCount: 600, RejectCount: 40, TotalCount: 640,
	}.Variables())

	assert.Equal(t, s.Availability*s.Performance*s.Quality/10000, s.Oee)
	assert.InDelta(t, 96.67, s.Availability, 0.01)
	assert.InDelta(t, 88.28, s.Performance, 0.01)
	assert.InDelta(t, 93.75, s.Quality, 1e-9)
	assert.InDelta(t, 80.0, s.Oee, 0.05)
}

func TestTarget(t *testing.T) {
	e := NewEvaluator(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	tc := TargetContext{
		Segments: []TargetSegment{
			{RunTimeSeconds: 3600, IdealRate: 100},
			{RunTimeSeconds: 1800, IdealRate: 60},
			{RunTimeSeconds: 600, IdealRate: 0},
		},
		Variables: Inputs{RunTime: 5400}.Variables(),
	}

	assert.InDelta(t, 500, e.Target(tc, TargetFormula{Mode: TargetStatic, StaticValue: 500}), 1e-9)
	assert.InDelta(t, 130, e.Target(tc, TargetFormula{Mode: TargetDynamic}), 1e-9)
	assert.InDelta(t, 117, e.Target(tc, TargetFormula{Mode: TargetCustom, Expression: "dynamic_target * 0.9"}), 1e-9)
	assert.InDelta(t, 42, e.Target(tc, TargetFormula{Mode: TargetCustom, StaticValue: 42}), 1e-9)
	assert.Equal(t, 0.0, e.Target(tc, TargetFormula{Mode: TargetCustom, Expression: "0 - run_time"}))
	assert.Equal(t, 0.0, e.Target(tc, TargetFormula{Mode: TargetStatic, StaticValue: -10}))
	assert.Equal(t, 0.0, e.Target(tc, TargetFormula{Mode: TargetCustom, Expression: "1/0"}))
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(map[string]string{
		KeyAvailabilityMode:       "custom",
		KeyAvailabilityExpression: " run_time / planned_production_time * 100 ",
		KeyPerformanceMode:        "bogus",
		KeyTargetMode:             "Dynamic",
		KeyTargetStaticValue:      "1200",
		KeyExcludeBreaks:          "0",
		KeyIncludeRejects:         "false",
	})

	assert.Equal(t, ModeCustom, cfg.Availability.Mode)
	assert.Equal(t, "run_time / planned_production_time * 100", cfg.Availability.Expression)
	assert.Equal(t, ModeStandard, cfg.Performance.Mode)
	assert.Equal(t, ModeStandard, cfg.Quality.Mode)
	assert.Equal(t, TargetDynamic, cfg.Target.Mode)
	assert.Equal(t, 1200.0, cfg.Target.StaticValue)
	assert.False(t, cfg.ExcludeBreaks)
	assert.False(t, cfg.IncludeRejectsInPerformance)
}

func TestConfigFromSettings_Defaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromSettings(nil))
}

type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) GetSettings(ctx context.Context, keys []string) (map[string]string, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func TestSettingsCache_CachesUntilTTLOrInvalidate(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("GetSettings", mock.Anything, SettingsKeys).Return(map[string]string{KeyQualityMode: "custom"}, nil)

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	cache := NewSettingsCache(store, time.Minute)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		cfg, err := cache.FormulaConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ModeCustom, cfg.Quality.Mode)
	}
	store.AssertNumberOfCalls(t, "GetSettings", 1)

	now = now.Add(2 * time.Minute)
	_, err := cache.FormulaConfig(context.Background())
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "GetSettings", 2)

	cache.Invalidate()
	_, err = cache.FormulaConfig(context.Background())
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "GetSettings", 3)
}

func TestSettingsCache_StoreError(t *testing.T) {
	store := new(MockSettingsStore)
	store.On("GetSettings", mock.Anything, SettingsKeys).Return(nil, errors.New("db down"))

	_, err := NewSettingsCache(store, 0).FormulaConfig(context.Background())

	assert.ErrorContains(t, err, "db down")
}
