package recipes

import (
	"time"

	"github.com/macrolab/macrolog/internal/nutrition"
)

// Recipe is a reusable template of weighted ingredient references. It never
// stores macro fields; totals are derived from current ingredient facts on
// every read.
type Recipe struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;size:190;not null;uniqueIndex:idx_recipes_name"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Recipe) TableName() string {
	return "recipes"
}

// RecipeItem ties one ingredient into a recipe with an amount. The unit is
// advisory metadata; no conversion is performed against the ingredient's
// default unit.
type RecipeItem struct {
	ID           uint    `gorm:"column:id;primaryKey"`
	RecipeID     uint    `gorm:"column:recipe_id;not null;index:idx_recipe_items_recipe"`
	IngredientID uint    `gorm:"column:ingredient_id;not null;index:idx_recipe_items_ingredient"`
	Amount       float64 `gorm:"column:amount;not null"`
	Unit         string  `gorm:"column:unit;size:50;not null"`
}

// TableName provides the explicit table binding for GORM.
func (RecipeItem) TableName() string {
	return "recipe_items"
}

// ExpandedItem is a recipe item joined with its ingredient and scaled by
// amount / default_amount. It is what recipe reads and food-log expansion
// consume.
type ExpandedItem struct {
	ItemID         uint             `json:"id"`
	IngredientID   uint             `json:"ingredient_id"`
	IngredientName string           `json:"ingredient_name"`
	Amount         float64          `json:"amount"`
	Unit           string           `json:"unit"`
	Macros         nutrition.Totals `json:"macros"`
}

// Detail is a recipe with its expanded items and derived totals.
type Detail struct {
	ID        uint             `json:"id"`
	Name      string           `json:"name"`
	Items     []ExpandedItem   `json:"items"`
	Totals    nutrition.Totals `json:"totals"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Summary is a recipe list row with derived totals but no item breakdown.
type Summary struct {
	ID        uint             `json:"id"`
	Name      string           `json:"name"`
	Totals    nutrition.Totals `json:"totals"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
