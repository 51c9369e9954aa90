package database

import (
	"errors"
	"time"

	"github.com/macrolab/macrolog/internal/body"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillFoodEntryBatchIDs = "2026-07-02_backfill_food_entry_batch_ids"
	migrationNormalizeBodySources      = "2026-07-02_normalize_body_sources"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillFoodEntryBatchIDs, apply: backfillFoodEntryBatchIDs},
		{name: migrationNormalizeBodySources, apply: normalizeBodySources},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillFoodEntryBatchIDs repairs rows written before batch tracking: a
// NULL batch_id becomes the empty string the model expects.
func backfillFoodEntryBatchIDs(db *gorm.DB) error {
	return db.Exec("UPDATE food_entries SET batch_id = '' WHERE batch_id IS NULL;").Error
}

// normalizeBodySources repairs rows written before the source column gained
// its default.
func normalizeBodySources(db *gorm.DB) error {
	return db.Model(&body.Measurement{}).
		Where("source IS NULL OR source = ''").
		Update("source", body.SourceManual).Error
}
