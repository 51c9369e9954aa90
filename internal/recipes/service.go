package recipes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/macrolab/macrolog/internal/apperr"
	"github.com/macrolab/macrolog/internal/ingredients"
	"github.com/macrolab/macrolog/internal/nutrition"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "recipes.service.new"
	opCreate     = "recipes.create"
	opGet        = "recipes.get"
	opList       = "recipes.list"
	opRename     = "recipes.rename"
	opDelete     = "recipes.delete"
	opAddItem    = "recipes.add_item"
	opUpdateItem = "recipes.update_item"
	opRemoveItem = "recipes.remove_item"
	opExpand     = "recipes.expand"
)

// ServiceConfig wires the recipe composer dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service composes recipes from ingredient references and derives their
// totals on demand.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// ItemParams describes one ingredient reference inside a recipe.
type ItemParams struct {
	IngredientID uint
	Amount       float64
	Unit         string
}

// CreateParams carries the fields for a new recipe.
type CreateParams struct {
	Name  string
	Items []ItemParams
}

// Create inserts a recipe and its items in one transaction. A missing
// ingredient aborts the whole create.
func (s *Service) Create(ctx context.Context, params CreateParams) (Detail, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Detail{}, apperr.Validation(opCreate, "missing_name", nil)
	}
	for _, item := range params.Items {
		if item.Amount < 0 {
			return Detail{}, apperr.Validation(opCreate, "negative_amount", nil)
		}
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&Recipe{}).
		Where("name = ?", name).
		Count(&existing).Error; err != nil {
		s.logError(opCreate, "name_check_failed", err, zap.String("name", name))
		return Detail{}, apperr.Internal(opCreate, "name_check_failed", err)
	}
	if existing > 0 {
		return Detail{}, apperr.Conflict(opCreate, "duplicate_name", nil)
	}

	now := s.clock().UTC()
	recipe := Recipe{Name: name, CreatedAt: now, UpdatedAt: now}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			s.logError(opCreate, "insert_failed", err, zap.String("name", name))
			return apperr.Internal(opCreate, "insert_failed", err)
		}
		for _, item := range params.Items {
			if err := ensureIngredientExists(tx, item.IngredientID); err != nil {
				return apperr.NotFound(opCreate, "ingredient_missing", err)
			}
			row := RecipeItem{
				RecipeID:     recipe.ID,
				IngredientID: item.IngredientID,
				Amount:       item.Amount,
				Unit:         item.Unit,
			}
			if err := tx.Create(&row).Error; err != nil {
				s.logError(opCreate, "item_insert_failed", err, zap.Uint("ingredient_id", item.IngredientID))
				return apperr.Internal(opCreate, "item_insert_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return Detail{}, txErr
	}

	return s.Get(ctx, recipe.ID)
}

// Get fetches a recipe with expanded items and derived totals.
func (s *Service) Get(ctx context.Context, recipeID uint) (Detail, error) {
	var recipe Recipe
	err := s.db.WithContext(ctx).Where("id = ?", recipeID).Take(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Detail{}, apperr.NotFound(opGet, "recipe_missing", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Uint("recipe_id", recipeID))
		return Detail{}, apperr.Internal(opGet, "query_failed", err)
	}

	items, err := s.ExpandedItems(ctx, recipeID)
	if err != nil {
		return Detail{}, err
	}

	return Detail{
		ID:        recipe.ID,
		Name:      recipe.Name,
		Items:     items,
		Totals:    sumItems(items),
		CreatedAt: recipe.CreatedAt,
		UpdatedAt: recipe.UpdatedAt,
	}, nil
}

// List returns all recipes with derived totals, ordered by name.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	var rows []Recipe
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, apperr.Internal(opList, "query_failed", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, recipe := range rows {
		items, err := s.ExpandedItems(ctx, recipe.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			ID:        recipe.ID,
			Name:      recipe.Name,
			Totals:    sumItems(items),
			CreatedAt: recipe.CreatedAt,
			UpdatedAt: recipe.UpdatedAt,
		})
	}
	return summaries, nil
}

// ExpandedItems resolves a recipe's items against current ingredient facts,
// scaling each ingredient's macros by item.amount / ingredient.default_amount.
func (s *Service) ExpandedItems(ctx context.Context, recipeID uint) ([]ExpandedItem, error) {
	type expandedRow struct {
		ItemID         uint
		IngredientID   uint
		IngredientName string
		Amount         float64
		Unit           string
		DefaultAmount  float64
		Calories       int
		ProteinG       float64
		CarbsG         float64
		FatsG          float64
		SodiumMg       int
	}

	var itemCount int64
	if err := s.db.WithContext(ctx).Model(&RecipeItem{}).
		Where("recipe_id = ?", recipeID).
		Count(&itemCount).Error; err != nil {
		s.logError(opExpand, "item_count_failed", err, zap.Uint("recipe_id", recipeID))
		return nil, apperr.Internal(opExpand, "item_count_failed", err)
	}

	var rows []expandedRow
	if err := s.db.WithContext(ctx).Table("recipe_items").
		Select("recipe_items.id AS item_id, recipe_items.ingredient_id, recipe_items.amount, recipe_items.unit, "+
			"ingredients.name AS ingredient_name, ingredients.default_amount, ingredients.calories, "+
			"ingredients.protein_g, ingredients.carbs_g, ingredients.fats_g, ingredients.sodium_mg").
		Joins("JOIN ingredients ON ingredients.id = recipe_items.ingredient_id").
		Where("recipe_items.recipe_id = ?", recipeID).
		Order("recipe_items.id").
		Scan(&rows).Error; err != nil {
		s.logError(opExpand, "join_failed", err, zap.Uint("recipe_id", recipeID))
		return nil, apperr.Internal(opExpand, "join_failed", err)
	}

	// An item whose ingredient row vanished drops out of the join.
	if int64(len(rows)) != itemCount {
		return nil, apperr.NotFound(opExpand, "ingredient_missing", nil)
	}

	items := make([]ExpandedItem, 0, len(rows))
	for _, row := range rows {
		scale := 1.0
		if row.DefaultAmount != 0 {
			scale = row.Amount / row.DefaultAmount
		}
		base := nutrition.Totals{
			Calories: row.Calories,
			ProteinG: row.ProteinG,
			CarbsG:   row.CarbsG,
			FatsG:    row.FatsG,
			SodiumMg: row.SodiumMg,
		}
		items = append(items, ExpandedItem{
			ItemID:         row.ItemID,
			IngredientID:   row.IngredientID,
			IngredientName: row.IngredientName,
			Amount:         row.Amount,
			Unit:           row.Unit,
			Macros:         base.Scale(scale),
		})
	}
	return items, nil
}

// ComputeTotals derives the macro totals of a recipe from current
// ingredient state. Pure read, nothing is persisted.
func (s *Service) ComputeTotals(ctx context.Context, recipeID uint) (nutrition.Totals, error) {
	detail, err := s.Get(ctx, recipeID)
	if err != nil {
		return nutrition.Totals{}, err
	}
	return detail.Totals, nil
}

// Rename changes a recipe's name and bumps updated_at.
func (s *Service) Rename(ctx context.Context, recipeID uint, name string) (Detail, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Detail{}, apperr.Validation(opRename, "missing_name", nil)
	}
	if _, err := s.Get(ctx, recipeID); err != nil {
		return Detail{}, err
	}

	var clashing int64
	if err := s.db.WithContext(ctx).Model(&Recipe{}).
		Where("name = ? AND id <> ?", name, recipeID).
		Count(&clashing).Error; err != nil {
		s.logError(opRename, "name_check_failed", err, zap.String("name", name))
		return Detail{}, apperr.Internal(opRename, "name_check_failed", err)
	}
	if clashing > 0 {
		return Detail{}, apperr.Conflict(opRename, "duplicate_name", nil)
	}

	if err := s.db.WithContext(ctx).Model(&Recipe{}).
		Where("id = ?", recipeID).
		Updates(map[string]any{"name": name, "updated_at": s.clock().UTC()}).Error; err != nil {
		s.logError(opRename, "update_failed", err, zap.Uint("recipe_id", recipeID))
		return Detail{}, apperr.Internal(opRename, "update_failed", err)
	}

	return s.Get(ctx, recipeID)
}

// Delete removes a recipe and cascades to its items.
func (s *Service) Delete(ctx context.Context, recipeID uint) error {
	if _, err := s.Get(ctx, recipeID); err != nil {
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&RecipeItem{}).Error; err != nil {
			s.logError(opDelete, "item_delete_failed", err, zap.Uint("recipe_id", recipeID))
			return apperr.Internal(opDelete, "item_delete_failed", err)
		}
		if err := tx.Delete(&Recipe{}, recipeID).Error; err != nil {
			s.logError(opDelete, "delete_failed", err, zap.Uint("recipe_id", recipeID))
			return apperr.Internal(opDelete, "delete_failed", err)
		}
		return nil
	})
	return txErr
}

// AddItem appends an ingredient reference to a recipe.
func (s *Service) AddItem(ctx context.Context, recipeID uint, params ItemParams) (Detail, error) {
	if params.Amount < 0 {
		return Detail{}, apperr.Validation(opAddItem, "negative_amount", nil)
	}
	if _, err := s.Get(ctx, recipeID); err != nil {
		return Detail{}, err
	}
	if err := ensureIngredientExists(s.db.WithContext(ctx), params.IngredientID); err != nil {
		return Detail{}, apperr.NotFound(opAddItem, "ingredient_missing", err)
	}

	row := RecipeItem{
		RecipeID:     recipeID,
		IngredientID: params.IngredientID,
		Amount:       params.Amount,
		Unit:         params.Unit,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logError(opAddItem, "insert_failed", err, zap.Uint("recipe_id", recipeID))
		return Detail{}, apperr.Internal(opAddItem, "insert_failed", err)
	}
	if err := s.touch(ctx, recipeID, opAddItem); err != nil {
		return Detail{}, err
	}

	return s.Get(ctx, recipeID)
}

// ItemUpdateParams carries a partial recipe-item update.
type ItemUpdateParams struct {
	IngredientID *uint
	Amount       *float64
	Unit         *string
}

// UpdateItem merges the provided fields into an existing item.
func (s *Service) UpdateItem(ctx context.Context, recipeID, itemID uint, params ItemUpdateParams) (Detail, error) {
	if _, err := s.Get(ctx, recipeID); err != nil {
		return Detail{}, err
	}
	if err := s.ensureItemExists(ctx, recipeID, itemID, opUpdateItem); err != nil {
		return Detail{}, err
	}

	changes := map[string]any{}
	if params.IngredientID != nil {
		if err := ensureIngredientExists(s.db.WithContext(ctx), *params.IngredientID); err != nil {
			return Detail{}, apperr.NotFound(opUpdateItem, "ingredient_missing", err)
		}
		changes["ingredient_id"] = *params.IngredientID
	}
	if params.Amount != nil {
		if *params.Amount < 0 {
			return Detail{}, apperr.Validation(opUpdateItem, "negative_amount", nil)
		}
		changes["amount"] = *params.Amount
	}
	if params.Unit != nil {
		changes["unit"] = *params.Unit
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&RecipeItem{}).
			Where("id = ? AND recipe_id = ?", itemID, recipeID).
			Updates(changes).Error; err != nil {
			s.logError(opUpdateItem, "update_failed", err, zap.Uint("item_id", itemID))
			return Detail{}, apperr.Internal(opUpdateItem, "update_failed", err)
		}
		if err := s.touch(ctx, recipeID, opUpdateItem); err != nil {
			return Detail{}, err
		}
	}

	return s.Get(ctx, recipeID)
}

// RemoveItem deletes one item from a recipe.
func (s *Service) RemoveItem(ctx context.Context, recipeID, itemID uint) (Detail, error) {
	if _, err := s.Get(ctx, recipeID); err != nil {
		return Detail{}, err
	}
	if err := s.ensureItemExists(ctx, recipeID, itemID, opRemoveItem); err != nil {
		return Detail{}, err
	}

	if err := s.db.WithContext(ctx).
		Where("id = ? AND recipe_id = ?", itemID, recipeID).
		Delete(&RecipeItem{}).Error; err != nil {
		s.logError(opRemoveItem, "delete_failed", err, zap.Uint("item_id", itemID))
		return Detail{}, apperr.Internal(opRemoveItem, "delete_failed", err)
	}
	if err := s.touch(ctx, recipeID, opRemoveItem); err != nil {
		return Detail{}, err
	}

	return s.Get(ctx, recipeID)
}

// IngredientReferences implements ingredients.ReferenceCounter so ingredient
// deletes can be blocked while recipes still use them.
func (s *Service) IngredientReferences(ctx context.Context, ingredientID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&RecipeItem{}).
		Where("ingredient_id = ?", ingredientID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ ingredients.ReferenceCounter = (*Service)(nil)

func (s *Service) ensureItemExists(ctx context.Context, recipeID, itemID uint, operation string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&RecipeItem{}).
		Where("id = ? AND recipe_id = ?", itemID, recipeID).
		Count(&count).Error; err != nil {
		s.logError(operation, "item_check_failed", err, zap.Uint("item_id", itemID))
		return apperr.Internal(operation, "item_check_failed", err)
	}
	if count == 0 {
		return apperr.NotFound(operation, "item_missing", nil)
	}
	return nil
}

func (s *Service) touch(ctx context.Context, recipeID uint, operation string) error {
	if err := s.db.WithContext(ctx).Model(&Recipe{}).
		Where("id = ?", recipeID).
		Update("updated_at", s.clock().UTC()).Error; err != nil {
		s.logError(operation, "touch_failed", err, zap.Uint("recipe_id", recipeID))
		return apperr.Internal(operation, "touch_failed", err)
	}
	return nil
}

func ensureIngredientExists(tx *gorm.DB, ingredientID uint) error {
	var count int64
	if err := tx.Model(&ingredients.Ingredient{}).
		Where("id = ?", ingredientID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func sumItems(items []ExpandedItem) nutrition.Totals {
	var totals nutrition.Totals
	for _, item := range items {
		totals = totals.Add(item.Macros)
	}
	return totals
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("recipes service error", attrs...)
}
