package formula

import (
	"log/slog"
	"math"
	"strings"

	"oee-tracker/internal/metrics"
)

type Metric string

const (
	MetricAvailability Metric = "availability"
	MetricPerformance  Metric = "performance"
	MetricQuality      Metric = "quality"
	MetricTarget       Metric = "target"
)

// Scores are on a 0-100 scale. Performance may exceed 100 when a machine runs above its ideal rate.
type Scores struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	Oee          float64 `json:"oee"`
}

// StandardFunc is a built-in formula used when no custom expression applies.
type StandardFunc func(vars Variables) float64

func StandardAvailability(vars Variables) float64 {
	ppt := vars[VarPlannedProductionTime]
	if ppt < 1 {
		ppt = 1
	}
	return vars[VarRunTime] / ppt * 100
}

func StandardPerformance(vars Variables) float64 {
	runTime := vars[VarRunTime]
	if runTime <= 0 {
		return 0
	}
	return vars[VarStandardTimeProduced] / runTime * 100
}

func StandardQuality(vars Variables) float64 {
	total := vars[VarTotalCount]
	if total <= 0 {
		return 0
	}
	return vars[VarGoodCount] / total * 100
}

// Oee combines the three scores; the combination is the same whatever mode each score used.
func Oee(availability, performance, quality float64) float64 {
	return availability * performance * quality / 10000
}

type Evaluator struct {
	log *slog.Logger
}

func NewEvaluator(log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{log: log}
}

// Evaluate applies the custom expression when the formula is in custom mode and has one,
// otherwise standard. A failing custom expression is logged and yields 0; it never fails the caller.
func (e *Evaluator) Evaluate(metric Metric, f MetricFormula, standard StandardFunc, vars Variables) float64 {
	vars = vars.Normalized()

	if f.Mode != ModeCustom || strings.TrimSpace(f.Expression) == "" {
		return standard(vars)
	}

	v, err := e.evalExpression(f.Expression, vars)
	if err != nil {
		e.log.Error("formula evaluation failed",
			slog.String("metric", string(metric)),
			slog.String("expression", f.Expression),
			slog.String("error", err.Error()),
		)
		metrics.IncFormulaFailure(string(metric))
		return 0
	}

	return v
}

func (e *Evaluator) evalExpression(src string, vars Variables) (float64, error) {
	expr, err := Parse(src)
	if err != nil {
		return 0, err
	}
	return expr.Eval(vars)
}

// Scores computes the three scores independently and combines them.
func (e *Evaluator) Scores(cfg Config, vars Variables) Scores {
	a := e.Evaluate(MetricAvailability, cfg.Availability, StandardAvailability, vars)
	p := e.Evaluate(MetricPerformance, cfg.Performance, StandardPerformance, vars)
	q := e.Evaluate(MetricQuality, cfg.Quality, StandardQuality, vars)

	return Scores{
		Availability: a,
		Performance:  p,
		Quality:      q,
		Oee:          Oee(a, p, q),
	}
}

// TargetSegment is a stretch of run time produced at one ideal rate (units per hour).
type TargetSegment struct {
	RunTimeSeconds float64 `json:"run_time_seconds"`
	IdealRate      float64 `json:"ideal_rate"`
}

type TargetContext struct {
	Segments  []TargetSegment `json:"segments"`
	Variables Variables       `json:"variables"`
}

// DynamicTarget sums the ideal output of each segment.
func DynamicTarget(segments []TargetSegment) float64 {
	var total float64
	for _, s := range segments {
		if s.RunTimeSeconds <= 0 || s.IdealRate <= 0 {
			continue
		}
		total += s.RunTimeSeconds / 3600 * s.IdealRate
	}
	return total
}

// Target computes the production target. Custom expressions can use dynamic_target and
// static_target in addition to the fixed variables. The result is never negative.
func (e *Evaluator) Target(tc TargetContext, f TargetFormula) float64 {
	var v float64

	switch f.Mode {
	case TargetDynamic:
		v = DynamicTarget(tc.Segments)
	case TargetCustom:
		vars := tc.Variables.Merge(Variables{
			"dynamic_target": DynamicTarget(tc.Segments),
			"static_target":  f.StaticValue,
		})
		v = e.Evaluate(MetricTarget, MetricFormula{Mode: ModeCustom, Expression: f.Expression}, func(Variables) float64 {
			return f.StaticValue
		}, vars)
	default:
		v = f.StaticValue
	}

	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
