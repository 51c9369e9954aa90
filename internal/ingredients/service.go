package ingredients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/macrolab/macrolog/internal/apperr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "ingredients.service.new"
	opCreate     = "ingredients.create"
	opGet        = "ingredients.get"
	opList       = "ingredients.list"
	opSearch     = "ingredients.search"
	opUpdate     = "ingredients.update"
	opDelete     = "ingredients.delete"
)

// ReferenceCounter reports how many recipe items reference an ingredient.
// Wired to the recipes service so deletes can be blocked at the service
// level with an actionable error.
type ReferenceCounter interface {
	IngredientReferences(ctx context.Context, ingredientID uint) (int64, error)
}

// ServiceConfig wires the ingredient store dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	References ReferenceCounter
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service manages the reusable ingredient catalogue.
type Service struct {
	db         *gorm.DB
	references ReferenceCounter
	clock      func() time.Time
	logger     *zap.Logger
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

	return &Service{
		db:         cfg.Database,
		references: cfg.References,
		clock:      clock,
		logger:     logger,
	}, nil
}

// SetReferences installs the recipe-item reference counter. The recipes
// service depends on this package, so the counter arrives after construction.
func (s *Service) SetReferences(counter ReferenceCounter) {
	s.references = counter
}

// CreateParams carries the fields for a new ingredient.
type CreateParams struct {
	Name          string
	DefaultAmount float64
	DefaultUnit   string
	Calories      int
	ProteinG      float64
	CarbsG        float64
	FatsG         float64
	SodiumMg      int
}

// Create inserts a new ingredient. Names are unique and compared
// case-sensitively; lookups via Search stay case-insensitive.
func (s *Service) Create(ctx context.Context, params CreateParams) (Ingredient, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Ingredient{}, apperr.Validation(opCreate, "missing_name", nil)
	}
	if params.DefaultAmount <= 0 {
		return Ingredient{}, apperr.Validation(opCreate, "invalid_default_amount", nil)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&Ingredient{}).
		Where("name = ?", name).
		Count(&existing).Error; err != nil {
		s.logError(opCreate, "name_check_failed", err, zap.String("name", name))
		return Ingredient{}, apperr.Internal(opCreate, "name_check_failed", err)
	}
	if existing > 0 {
		return Ingredient{}, apperr.Conflict(opCreate, "duplicate_name", nil)
	}

	ingredient := Ingredient{
		Name:          name,
		DefaultAmount: params.DefaultAmount,
		DefaultUnit:   params.DefaultUnit,
		Calories:      params.Calories,
		ProteinG:      params.ProteinG,
		CarbsG:        params.CarbsG,
		FatsG:         params.FatsG,
		SodiumMg:      params.SodiumMg,
		CreatedAt:     s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("name", name))
		return Ingredient{}, apperr.Internal(opCreate, "insert_failed", err)
	}

	return ingredient, nil
}

// Get fetches one ingredient by ID.
func (s *Service) Get(ctx context.Context, ingredientID uint) (Ingredient, error) {
	var ingredient Ingredient
	err := s.db.WithContext(ctx).Where("id = ?", ingredientID).Take(&ingredient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Ingredient{}, apperr.NotFound(opGet, "ingredient_missing", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Uint("ingredient_id", ingredientID))
		return Ingredient{}, apperr.Internal(opGet, "query_failed", err)
	}
	return ingredient, nil
}

// List returns all ingredients ordered by name.
func (s *Service) List(ctx context.Context) ([]Ingredient, error) {
	var results []Ingredient
	if err := s.db.WithContext(ctx).Order("name").Find(&results).Error; err != nil {
		s.logError(opList, "query_failed", err)
		return nil, apperr.Internal(opList, "query_failed", err)
	}
	return results, nil
}

// Search returns ingredients whose name contains query, case-insensitively.
// No match yields an empty slice, not an error.
func (s *Service) Search(ctx context.Context, query string) ([]Ingredient, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	results := make([]Ingredient, 0)
	if err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", pattern).
		Order("name").
		Find(&results).Error; err != nil {
		s.logError(opSearch, "query_failed", err, zap.String("query", query))
		return nil, apperr.Internal(opSearch, "query_failed", err)
	}
	return results, nil
}

// UpdateParams carries a partial ingredient update. Nil fields are left as-is.
type UpdateParams struct {
	Name          *string
	DefaultAmount *float64
	DefaultUnit   *string
	Calories      *int
	ProteinG      *float64
	CarbsG        *float64
	FatsG         *float64
	SodiumMg      *int
}

// Update merges the provided fields into an existing ingredient. Food entries
// logged earlier keep their snapshots; recipes recompute on next read.
func (s *Service) Update(ctx context.Context, ingredientID uint, params UpdateParams) (Ingredient, error) {
	if _, err := s.Get(ctx, ingredientID); err != nil {
		return Ingredient{}, err
	}

	changes := map[string]any{}
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return Ingredient{}, apperr.Validation(opUpdate, "missing_name", nil)
		}
		var clashing int64
		if err := s.db.WithContext(ctx).Model(&Ingredient{}).
			Where("name = ? AND id <> ?", name, ingredientID).
			Count(&clashing).Error; err != nil {
			s.logError(opUpdate, "name_check_failed", err, zap.String("name", name))
			return Ingredient{}, apperr.Internal(opUpdate, "name_check_failed", err)
		}
		if clashing > 0 {
			return Ingredient{}, apperr.Conflict(opUpdate, "duplicate_name", nil)
		}
		changes["name"] = name
	}
	if params.DefaultAmount != nil {
		if *params.DefaultAmount <= 0 {
			return Ingredient{}, apperr.Validation(opUpdate, "invalid_default_amount", nil)
		}
		changes["default_amount"] = *params.DefaultAmount
	}
	if params.DefaultUnit != nil {
		changes["default_unit"] = *params.DefaultUnit
	}
	if params.Calories != nil {
		changes["calories"] = *params.Calories
	}
	if params.ProteinG != nil {
		changes["protein_g"] = *params.ProteinG
	}
	if params.CarbsG != nil {
		changes["carbs_g"] = *params.CarbsG
	}
	if params.FatsG != nil {
		changes["fats_g"] = *params.FatsG
	}
	if params.SodiumMg != nil {
		changes["sodium_mg"] = *params.SodiumMg
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&Ingredient{}).
			Where("id = ?", ingredientID).
			Updates(changes).Error; err != nil {
			s.logError(opUpdate, "update_failed", err, zap.Uint("ingredient_id", ingredientID))
			return Ingredient{}, apperr.Internal(opUpdate, "update_failed", err)
		}
	}

	return s.Get(ctx, ingredientID)
}

// Delete removes an ingredient. Fails with Conflict while any recipe item
// still references it.
func (s *Service) Delete(ctx context.Context, ingredientID uint) error {
	if _, err := s.Get(ctx, ingredientID); err != nil {
		return err
	}

	if s.references != nil {
		count, err := s.references.IngredientReferences(ctx, ingredientID)
		if err != nil {
			s.logError(opDelete, "reference_check_failed", err, zap.Uint("ingredient_id", ingredientID))
			return apperr.Internal(opDelete, "reference_check_failed", err)
		}
		if count > 0 {
			return apperr.Conflict(opDelete, "referenced_by_recipe", nil)
		}
	}

	if err := s.db.WithContext(ctx).Delete(&Ingredient{}, ingredientID).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.Uint("ingredient_id", ingredientID))
		return apperr.Internal(opDelete, "delete_failed", err)
	}
	return nil
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
	s.logger.Error("ingredients service error", attrs...)
}
