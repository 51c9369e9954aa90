package nutrition

import "math"

// Totals carries the five tracked macro values. Calories and sodium are
// whole numbers, gram fields keep one decimal.
type Totals struct {
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatsG    float64 `json:"fats_g"`
	SodiumMg int     `json:"sodium_mg"`
}

// Round1 rounds a gram value to one decimal place.
func Round1(value float64) float64 {
	return math.Round(value*10) / 10
}

// Scale multiplies every macro field by factor, re-rounding to the stored
// precision. A zero factor yields all-zero totals.
func (t Totals) Scale(factor float64) Totals {
	return Totals{
		Calories: int(math.Round(float64(t.Calories) * factor)),
		ProteinG: Round1(t.ProteinG * factor),
		CarbsG:   Round1(t.CarbsG * factor),
		FatsG:    Round1(t.FatsG * factor),
		SodiumMg: int(math.Round(float64(t.SodiumMg) * factor)),
	}
}

// Add accumulates other into t and returns the sum.
func (t Totals) Add(other Totals) Totals {
	return Totals{
		Calories: t.Calories + other.Calories,
		ProteinG: Round1(t.ProteinG + other.ProteinG),
		CarbsG:   Round1(t.CarbsG + other.CarbsG),
		FatsG:    Round1(t.FatsG + other.FatsG),
		SodiumMg: t.SodiumMg + other.SodiumMg,
	}
}
