package storage

type Machine struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	PlantID   int64    `json:"plant_id"`
	LineID    *int64   `json:"line_id"`
	IdealRate *float64 `json:"ideal_rate"` // units per hour
	IsActive  bool     `json:"is_active"`
}

type MachineProductRate struct {
	MachineID int64   `json:"machine_id"`
	ProductID int64   `json:"product_id"`
	IdealRate float64 `json:"ideal_rate"`
}
