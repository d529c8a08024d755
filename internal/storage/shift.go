package storage

const (
	ShiftScopeMachine = "machine"
	ShiftScopePlant   = "plant"
)

// ShiftDefinition is a configured shift. StartTime and EndTime are times of day ("06:00", "22:00:00").
type ShiftDefinition struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Scope     string `json:"scope"`
	ScopeID   int64  `json:"scope_id"`
}
