package foodlog

import (
	"time"

	"github.com/macrolab/macrolog/internal/nutrition"
)

// FoodEntry is one logged item. Its macro fields are an immutable snapshot
// captured at log time: later edits to the source ingredient or recipe never
// touch them. ingredient_id and recipe_id are provenance only.
type FoodEntry struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	Date         string    `gorm:"column:date;size:10;not null;index:idx_food_entries_date_marker,priority:1" json:"date"`
	Marker       string    `gorm:"column:marker;size:190;not null;index:idx_food_entries_date_marker,priority:2" json:"marker"`
	Name         string    `gorm:"column:name;size:190;not null" json:"name"`
	Amount       float64   `gorm:"column:amount;not null" json:"amount"`
	Unit         string    `gorm:"column:unit;size:50;not null" json:"unit"`
	Calories     int       `gorm:"column:calories;not null" json:"calories"`
	ProteinG     float64   `gorm:"column:protein_g;not null" json:"protein_g"`
	CarbsG       float64   `gorm:"column:carbs_g;not null" json:"carbs_g"`
	FatsG        float64   `gorm:"column:fats_g;not null" json:"fats_g"`
	SodiumMg     int       `gorm:"column:sodium_mg;not null" json:"sodium_mg"`
	IngredientID *uint     `gorm:"column:ingredient_id" json:"ingredient_id,omitempty"`
	RecipeID     *uint     `gorm:"column:recipe_id" json:"recipe_id,omitempty"`
	BatchID      string    `gorm:"column:batch_id;size:190;not null;default:''" json:"batch_id,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (FoodEntry) TableName() string {
	return "food_entries"
}

// Macros returns the entry's snapshot as totals.
func (e FoodEntry) Macros() nutrition.Totals {
	return nutrition.Totals{
		Calories: e.Calories,
		ProteinG: e.ProteinG,
		CarbsG:   e.CarbsG,
		FatsG:    e.FatsG,
		SodiumMg: e.SodiumMg,
	}
}
