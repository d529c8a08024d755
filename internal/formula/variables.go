package formula

// Names of the variables always available to custom formulas. Times are seconds, rates are units.
const (
	VarRunTime               = "run_time"
	VarPlannedProductionTime = "planned_production_time"
	VarStandardTimeProduced  = "standard_time_produced"
	VarGoodCount             = "good_count"
	VarRejectCount           = "reject_count"
	VarTotalCount            = "total_count"
	VarIdealCycleTime        = "ideal_cycle_time"
	VarIdealRunRate          = "ideal_run_rate"
	VarIdealRunRateHourly    = "ideal_run_rate_hourly"
	VarPlannedDowntime       = "planned_downtime"
	VarUnplannedDowntime     = "unplanned_downtime"
	VarTotalShiftTime        = "total_shift_time"
)

// Variables is the binding set a formula is evaluated against.
type Variables map[string]float64

// Inputs holds the fixed variable set.
type Inputs struct {
	RunTime               float64
	PlannedProductionTime float64
	StandardTimeProduced  float64
	GoodCount             float64
	RejectCount           float64
	TotalCount            float64
	IdealCycleTime        float64
	IdealRunRate          float64
	IdealRunRateHourly    float64
	PlannedDowntime       float64
	UnplannedDowntime     float64
	TotalShiftTime        float64
}

// Variables builds the bag. planned_production_time is clamped to at least 1 because it is a
// denominator in the standard availability formula and in most custom ones.
func (in Inputs) Variables() Variables {
	ppt := in.PlannedProductionTime
	if ppt < 1 {
		ppt = 1
	}
	return Variables{
		VarRunTime:               in.RunTime,
		VarPlannedProductionTime: ppt,
		VarStandardTimeProduced:  in.StandardTimeProduced,
		VarGoodCount:             in.GoodCount,
		VarRejectCount:           in.RejectCount,
		VarTotalCount:            in.TotalCount,
		VarIdealCycleTime:        in.IdealCycleTime,
		VarIdealRunRate:          in.IdealRunRate,
		VarIdealRunRateHourly:    in.IdealRunRateHourly,
		VarPlannedDowntime:       in.PlannedDowntime,
		VarUnplannedDowntime:     in.UnplannedDowntime,
		VarTotalShiftTime:        in.TotalShiftTime,
	}
}

// Merge returns a copy of v with extras applied on top; extras win on key collision.
func (v Variables) Merge(extras Variables) Variables {
	out := make(Variables, len(v)+len(extras))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range extras {
		out[k] = val
	}
	return out
}

// Normalized fills every missing fixed variable with 0 and re-applies the
// planned_production_time clamp, so bags built by callers get the same guards.
func (v Variables) Normalized() Variables {
	out := Inputs{}.Variables().Merge(v)
	if out[VarPlannedProductionTime] < 1 {
		out[VarPlannedProductionTime] = 1
	}
	return out
}
