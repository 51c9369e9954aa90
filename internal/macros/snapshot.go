package macros

import (
	"context"
	"errors"
	"time"

	"github.com/macrolab/macrolog/internal/apperr"
	"github.com/macrolab/macrolog/internal/dates"
	"github.com/macrolab/macrolog/internal/foodlog"
	"github.com/macrolab/macrolog/internal/nutrition"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opStoreNew      = "macros.store.new"
	opComputeTotals = "macros.compute_totals"
	opGetOrCreate   = "macros.get_or_create_snapshot"
	opInvalidate    = "macros.invalidate"
)

// DailySnapshot caches the summed food entry macros for one past date.
// Rows are dropped whenever the food log mutates that date and rebuilt
// lazily on the next history read.
type DailySnapshot struct {
	Date        string    `gorm:"column:date;size:10;primaryKey"`
	Calories    int       `gorm:"column:calories;not null"`
	ProteinG    float64   `gorm:"column:protein_g;not null"`
	CarbsG      float64   `gorm:"column:carbs_g;not null"`
	FatsG       float64   `gorm:"column:fats_g;not null"`
	SodiumMg    int       `gorm:"column:sodium_mg;not null"`
	GeneratedAt time.Time `gorm:"column:generated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (DailySnapshot) TableName() string {
	return "daily_snapshots"
}

// Totals returns the cached sums.
func (s DailySnapshot) Totals() nutrition.Totals {
	return nutrition.Totals{
		Calories: s.Calories,
		ProteinG: s.ProteinG,
		CarbsG:   s.CarbsG,
		FatsG:    s.FatsG,
		SodiumMg: s.SodiumMg,
	}
}

// SnapshotStoreConfig wires the snapshot cache dependencies.
type SnapshotStoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// SnapshotStore computes and caches per-day macro sums.
type SnapshotStore struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

var _ foodlog.SnapshotInvalidator = (*SnapshotStore)(nil)

// NewSnapshotStore validates dependencies and constructs a SnapshotStore.
func NewSnapshotStore(cfg SnapshotStoreConfig) (*SnapshotStore, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opStoreNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &SnapshotStore{db: cfg.Database, clock: clock, logger: logger}, nil
}

// ComputeTotals sums the food entries for a date live, without touching the
// cache. An empty day yields all zeros.
func (s *SnapshotStore) ComputeTotals(ctx context.Context, date string) (nutrition.Totals, error) {
	day, err := dates.Parse(date)
	if err != nil {
		return nutrition.Totals{}, apperr.Validation(opComputeTotals, "invalid_date", err)
	}

	var sums struct {
		Calories int
		ProteinG float64
		CarbsG   float64
		FatsG    float64
		SodiumMg int
	}
	if err := s.db.WithContext(ctx).Model(&foodlog.FoodEntry{}).
		Select("COALESCE(SUM(calories), 0) AS calories, "+
			"COALESCE(SUM(protein_g), 0) AS protein_g, "+
			"COALESCE(SUM(carbs_g), 0) AS carbs_g, "+
			"COALESCE(SUM(fats_g), 0) AS fats_g, "+
			"COALESCE(SUM(sodium_mg), 0) AS sodium_mg").
		Where("date = ?", day).
		Scan(&sums).Error; err != nil {
		s.logError(opComputeTotals, "query_failed", err, zap.String("date", day))
		return nutrition.Totals{}, apperr.Internal(opComputeTotals, "query_failed", err)
	}

	return nutrition.Totals{
		Calories: sums.Calories,
		ProteinG: nutrition.Round1(sums.ProteinG),
		CarbsG:   nutrition.Round1(sums.CarbsG),
		FatsG:    nutrition.Round1(sums.FatsG),
		SodiumMg: sums.SodiumMg,
	}, nil
}

// GetOrCreateSnapshot returns the cached row for a date, computing and
// persisting one on a miss. Repeated calls without intervening food log
// mutations return identical totals.
func (s *SnapshotStore) GetOrCreateSnapshot(ctx context.Context, date string) (DailySnapshot, error) {
	day, err := dates.Parse(date)
	if err != nil {
		return DailySnapshot{}, apperr.Validation(opGetOrCreate, "invalid_date", err)
	}

	var snapshot DailySnapshot
	err = s.db.WithContext(ctx).Where("date = ?", day).Take(&snapshot).Error
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opGetOrCreate, "query_failed", err, zap.String("date", day))
		return DailySnapshot{}, apperr.Internal(opGetOrCreate, "query_failed", err)
	}

	totals, err := s.ComputeTotals(ctx, day)
	if err != nil {
		return DailySnapshot{}, err
	}

	snapshot = DailySnapshot{
		Date:        day,
		Calories:    totals.Calories,
		ProteinG:    totals.ProteinG,
		CarbsG:      totals.CarbsG,
		FatsG:       totals.FatsG,
		SodiumMg:    totals.SodiumMg,
		GeneratedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
		s.logError(opGetOrCreate, "insert_failed", err, zap.String("date", day))
		return DailySnapshot{}, apperr.Internal(opGetOrCreate, "insert_failed", err)
	}
	return snapshot, nil
}

// Invalidate drops the cached row for a date. Invalidating a date with no
// cached row is a no-op.
func (s *SnapshotStore) Invalidate(ctx context.Context, date string) error {
	day, err := dates.Parse(date)
	if err != nil {
		return apperr.Validation(opInvalidate, "invalid_date", err)
	}

	if err := s.db.WithContext(ctx).Where("date = ?", day).Delete(&DailySnapshot{}).Error; err != nil {
		s.logError(opInvalidate, "delete_failed", err, zap.String("date", day))
		return apperr.Internal(opInvalidate, "delete_failed", err)
	}
	return nil
}

func (s *SnapshotStore) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("macros snapshot error", attrs...)
}
