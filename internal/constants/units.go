package constants

import "oee-tracker/internal/storage"

// Base units: milliliter for volume, gram for weight, piece for count.
var DefaultUnits = []storage.UnitConversionEntry{
	// volume
	{Code: "ml", Alias: alias("milliliter"), ToBaseFactor: 1, Category: storage.UnitCategoryVolume},
	{Code: "cl", Alias: alias("centiliter"), ToBaseFactor: 10, Category: storage.UnitCategoryVolume},
	{Code: "dl", Alias: alias("deciliter"), ToBaseFactor: 100, Category: storage.UnitCategoryVolume},
	{Code: "l", Alias: alias("liter"), ToBaseFactor: 1000, Category: storage.UnitCategoryVolume},
	{Code: "hl", Alias: alias("hectoliter"), ToBaseFactor: 100000, Category: storage.UnitCategoryVolume},
	{Code: "m3", Alias: alias("cubic_meter"), ToBaseFactor: 1000000, Category: storage.UnitCategoryVolume},
	{Code: "gal", Alias: alias("gallon"), ToBaseFactor: 3785.411784, Category: storage.UnitCategoryVolume},
	{Code: "fl_oz", Alias: alias("fluid_ounce"), ToBaseFactor: 29.5735295625, Category: storage.UnitCategoryVolume},

	// weight
	{Code: "mg", Alias: alias("milligram"), ToBaseFactor: 0.001, Category: storage.UnitCategoryWeight},
	{Code: "g", Alias: alias("gram"), ToBaseFactor: 1, Category: storage.UnitCategoryWeight},
	{Code: "kg", Alias: alias("kilogram"), ToBaseFactor: 1000, Category: storage.UnitCategoryWeight},
	{Code: "t", Alias: alias("tonne"), ToBaseFactor: 1000000, Category: storage.UnitCategoryWeight},
	{Code: "oz", Alias: alias("ounce"), ToBaseFactor: 28.349523125, Category: storage.UnitCategoryWeight},
	{Code: "lb", Alias: alias("pound"), ToBaseFactor: 453.59237, Category: storage.UnitCategoryWeight},

	// count
	{Code: "pcs", Alias: alias("piece"), ToBaseFactor: 1, Category: storage.UnitCategoryCount},
	{Code: "pair", ToBaseFactor: 2, Category: storage.UnitCategoryCount},
	{Code: "dozen", Alias: alias("dz"), ToBaseFactor: 12, Category: storage.UnitCategoryCount},
}

func alias(s string) *string { return &s }
