package foodlog

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/macrolab/macrolog/internal/apperr"
	"github.com/macrolab/macrolog/internal/dates"
	"github.com/macrolab/macrolog/internal/recipes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew     = "foodlog.service.new"
	opCreate         = "foodlog.create"
	opCreateRecipe   = "foodlog.create_from_recipe"
	opGet            = "foodlog.get"
	opListByDate     = "foodlog.list_by_date"
	opUpdate         = "foodlog.update"
	opDelete         = "foodlog.delete"
	opDeleteByMarker = "foodlog.delete_by_marker"
	opClearByDate    = "foodlog.clear_by_date"
)

// RecipeExpander resolves a recipe into scaled per-item macros.
type RecipeExpander interface {
	Get(ctx context.Context, recipeID uint) (recipes.Detail, error)
}

// SnapshotInvalidator drops the cached daily snapshot for a date. Every food
// entry mutation invalidates the touched date(s) so cached history never goes
// stale.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, date string) error
}

// ServiceConfig wires the food log dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Recipes    RecipeExpander
	Snapshots  SnapshotInvalidator
	IDProvider IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service stores immutable food entry snapshots and expands recipes into them.
type Service struct {
	db         *gorm.DB
	recipes    RecipeExpander
	snapshots  SnapshotInvalidator
	idProvider IDProvider
	clock      func() time.Time
	logger     *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, apperr.Internal(opServiceNew, "missing_id_provider", errMissingIDProvider)
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
		recipes:    cfg.Recipes,
		snapshots:  cfg.Snapshots,
		idProvider: cfg.IDProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// CreateParams carries a direct food entry. Macro fields are stored verbatim;
// the server never recomputes them.
type CreateParams struct {
	Date         string
	Marker       string
	Name         string
	Amount       float64
	Unit         string
	Calories     int
	ProteinG     float64
	CarbsG       float64
	FatsG        float64
	SodiumMg     int
	IngredientID *uint
}

// CreateDirect persists a caller-supplied entry as given.
func (s *Service) CreateDirect(ctx context.Context, params CreateParams) (FoodEntry, error) {
	day, err := dates.Parse(params.Date)
	if err != nil {
		return FoodEntry{}, apperr.Validation(opCreate, "invalid_date", err)
	}
	if strings.TrimSpace(params.Marker) == "" {
		return FoodEntry{}, apperr.Validation(opCreate, "missing_marker", nil)
	}
	if strings.TrimSpace(params.Name) == "" {
		return FoodEntry{}, apperr.Validation(opCreate, "missing_name", nil)
	}
	if params.Amount < 0 {
		return FoodEntry{}, apperr.Validation(opCreate, "negative_amount", nil)
	}

	entry := FoodEntry{
		Date:         day,
		Marker:       params.Marker,
		Name:         params.Name,
		Amount:       params.Amount,
		Unit:         params.Unit,
		Calories:     params.Calories,
		ProteinG:     params.ProteinG,
		CarbsG:       params.CarbsG,
		FatsG:        params.FatsG,
		SodiumMg:     params.SodiumMg,
		IngredientID: params.IngredientID,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("date", day))
		return FoodEntry{}, apperr.Internal(opCreate, "insert_failed", err)
	}

	if err := s.invalidate(ctx, opCreate, day); err != nil {
		return FoodEntry{}, err
	}
	return entry, nil
}

// FromRecipeParams carries a recipe expansion request.
type FromRecipeParams struct {
	RecipeID uint
	Date     string
	Marker   string
	Scale    float64
}

// CreateFromRecipe expands a recipe into one entry per item, all sharing
// date, marker, recipe_id and a batch id. The insert is atomic: either all N
// entries appear or none do. A zero scale is legal and yields all-zero
// macros.
func (s *Service) CreateFromRecipe(ctx context.Context, params FromRecipeParams) ([]FoodEntry, error) {
	day, err := dates.Parse(params.Date)
	if err != nil {
		return nil, apperr.Validation(opCreateRecipe, "invalid_date", err)
	}
	if strings.TrimSpace(params.Marker) == "" {
		return nil, apperr.Validation(opCreateRecipe, "missing_marker", nil)
	}
	if params.Scale < 0 {
		return nil, apperr.Validation(opCreateRecipe, "negative_scale", nil)
	}

	detail, err := s.recipes.Get(ctx, params.RecipeID)
	if err != nil {
		return nil, err
	}

	batchID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateRecipe, "id_generation_failed", err)
		return nil, apperr.Internal(opCreateRecipe, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	recipeID := params.RecipeID
	entries := make([]FoodEntry, 0, len(detail.Items))
	for _, item := range detail.Items {
		macros := item.Macros.Scale(params.Scale)
		ingredientID := item.IngredientID
		entries = append(entries, FoodEntry{
			Date:         day,
			Marker:       params.Marker,
			Name:         item.IngredientName,
			Amount:       round2(item.Amount * params.Scale),
			Unit:         item.Unit,
			Calories:     macros.Calories,
			ProteinG:     macros.ProteinG,
			CarbsG:       macros.CarbsG,
			FatsG:        macros.FatsG,
			SodiumMg:     macros.SodiumMg,
			IngredientID: &ingredientID,
			RecipeID:     &recipeID,
			BatchID:      batchID,
			CreatedAt:    now,
		})
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			if err := tx.Create(&entries[i]).Error; err != nil {
				s.logError(opCreateRecipe, "insert_failed", err,
					zap.Uint("recipe_id", params.RecipeID),
					zap.String("batch_id", batchID))
				return apperr.Internal(opCreateRecipe, "insert_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if err := s.invalidate(ctx, opCreateRecipe, day); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get fetches one entry by ID.
func (s *Service) Get(ctx context.Context, entryID uint) (FoodEntry, error) {
	var entry FoodEntry
	err := s.db.WithContext(ctx).Where("id = ?", entryID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FoodEntry{}, apperr.NotFound(opGet, "entry_missing", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Uint("entry_id", entryID))
		return FoodEntry{}, apperr.Internal(opGet, "query_failed", err)
	}
	return entry, nil
}

// ListByDate returns all entries for a date in insertion order, optionally
// filtered by marker.
func (s *Service) ListByDate(ctx context.Context, date, marker string) ([]FoodEntry, error) {
	day, err := dates.Parse(date)
	if err != nil {
		return nil, apperr.Validation(opListByDate, "invalid_date", err)
	}

	query := s.db.WithContext(ctx).Where("date = ?", day)
	if marker != "" {
		query = query.Where("marker = ?", marker)
	}

	entries := make([]FoodEntry, 0)
	if err := query.Order("id").Find(&entries).Error; err != nil {
		s.logError(opListByDate, "query_failed", err, zap.String("date", day))
		return nil, apperr.Internal(opListByDate, "query_failed", err)
	}
	return entries, nil
}

// UpdateParams carries a partial entry update. Only the named row changes;
// nothing cascades to recipes or ingredients.
type UpdateParams struct {
	Date     *string
	Marker   *string
	Name     *string
	Amount   *float64
	Unit     *string
	Calories *int
	ProteinG *float64
	CarbsG   *float64
	FatsG    *float64
	SodiumMg *int
}

// Update merges the provided fields into an existing entry.
func (s *Service) Update(ctx context.Context, entryID uint, params UpdateParams) (FoodEntry, error) {
	existing, err := s.Get(ctx, entryID)
	if err != nil {
		return FoodEntry{}, err
	}

	touchedDates := []string{existing.Date}
	changes := map[string]any{}
	if params.Date != nil {
		day, err := dates.Parse(*params.Date)
		if err != nil {
			return FoodEntry{}, apperr.Validation(opUpdate, "invalid_date", err)
		}
		changes["date"] = day
		if day != existing.Date {
			touchedDates = append(touchedDates, day)
		}
	}
	if params.Marker != nil {
		if strings.TrimSpace(*params.Marker) == "" {
			return FoodEntry{}, apperr.Validation(opUpdate, "missing_marker", nil)
		}
		changes["marker"] = *params.Marker
	}
	if params.Name != nil {
		changes["name"] = *params.Name
	}
	if params.Amount != nil {
		if *params.Amount < 0 {
			return FoodEntry{}, apperr.Validation(opUpdate, "negative_amount", nil)
		}
		changes["amount"] = *params.Amount
	}
	if params.Unit != nil {
		changes["unit"] = *params.Unit
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
		if err := s.db.WithContext(ctx).Model(&FoodEntry{}).
			Where("id = ?", entryID).
			Updates(changes).Error; err != nil {
			s.logError(opUpdate, "update_failed", err, zap.Uint("entry_id", entryID))
			return FoodEntry{}, apperr.Internal(opUpdate, "update_failed", err)
		}
		for _, day := range touchedDates {
			if err := s.invalidate(ctx, opUpdate, day); err != nil {
				return FoodEntry{}, err
			}
		}
	}

	return s.Get(ctx, entryID)
}

// Delete removes one entry.
func (s *Service) Delete(ctx context.Context, entryID uint) error {
	existing, err := s.Get(ctx, entryID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&FoodEntry{}, entryID).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.Uint("entry_id", entryID))
		return apperr.Internal(opDelete, "delete_failed", err)
	}
	return s.invalidate(ctx, opDelete, existing.Date)
}

// DeleteByMarker removes every entry with the marker on a date and returns
// the affected count. Deleting a marker with no rows succeeds with zero.
func (s *Service) DeleteByMarker(ctx context.Context, date, marker string) (int64, error) {
	day, err := dates.Parse(date)
	if err != nil {
		return 0, apperr.Validation(opDeleteByMarker, "invalid_date", err)
	}
	if strings.TrimSpace(marker) == "" {
		return 0, apperr.Validation(opDeleteByMarker, "missing_marker", nil)
	}

	result := s.db.WithContext(ctx).Where("date = ? AND marker = ?", day, marker).Delete(&FoodEntry{})
	if result.Error != nil {
		s.logError(opDeleteByMarker, "delete_failed", result.Error, zap.String("date", day), zap.String("marker", marker))
		return 0, apperr.Internal(opDeleteByMarker, "delete_failed", result.Error)
	}

	if result.RowsAffected > 0 {
		if err := s.invalidate(ctx, opDeleteByMarker, day); err != nil {
			return 0, err
		}
	}
	return result.RowsAffected, nil
}

// ClearByDate removes every entry on a date and returns the affected count.
func (s *Service) ClearByDate(ctx context.Context, date string) (int64, error) {
	day, err := dates.Parse(date)
	if err != nil {
		return 0, apperr.Validation(opClearByDate, "invalid_date", err)
	}

	result := s.db.WithContext(ctx).Where("date = ?", day).Delete(&FoodEntry{})
	if result.Error != nil {
		s.logError(opClearByDate, "delete_failed", result.Error, zap.String("date", day))
		return 0, apperr.Internal(opClearByDate, "delete_failed", result.Error)
	}

	if result.RowsAffected > 0 {
		if err := s.invalidate(ctx, opClearByDate, day); err != nil {
			return 0, err
		}
	}
	return result.RowsAffected, nil
}

func (s *Service) invalidate(ctx context.Context, operation, date string) error {
	if s.snapshots == nil {
		return nil
	}
	if err := s.snapshots.Invalidate(ctx, date); err != nil {
		s.logError(operation, "snapshot_invalidation_failed", err, zap.String("date", date))
		return apperr.Internal(operation, "snapshot_invalidation_failed", err)
	}
	return nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
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
	s.logger.Error("foodlog service error", attrs...)
}
