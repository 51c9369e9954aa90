package ingredients

import "time"

// Ingredient holds reusable per-serving nutrition facts. The macro fields
// describe one default_amount of default_unit.
type Ingredient struct {
	ID            uint      `gorm:"column:id;primaryKey" json:"id"`
	Name          string    `gorm:"column:name;size:190;not null;uniqueIndex:idx_ingredients_name" json:"name"`
	DefaultAmount float64   `gorm:"column:default_amount;not null" json:"default_amount"`
	DefaultUnit   string    `gorm:"column:default_unit;size:50;not null" json:"default_unit"`
	Calories      int       `gorm:"column:calories;not null" json:"calories"`
	ProteinG      float64   `gorm:"column:protein_g;not null" json:"protein_g"`
	CarbsG        float64   `gorm:"column:carbs_g;not null" json:"carbs_g"`
	FatsG         float64   `gorm:"column:fats_g;not null" json:"fats_g"`
	SodiumMg      int       `gorm:"column:sodium_mg;not null" json:"sodium_mg"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Ingredient) TableName() string {
	return "ingredients"
}
