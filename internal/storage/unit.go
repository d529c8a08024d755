package storage

const (
	UnitCategoryVolume = "volume"
	UnitCategoryWeight = "weight"
	UnitCategoryCount  = "count"
)

type UnitConversionEntry struct {
	Code         string  `json:"code"`
	Alias        *string `json:"alias"`
	ToBaseFactor float64 `json:"to_base_factor"`
	Category     string  `json:"category"`
}
