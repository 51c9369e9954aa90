package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/macrolab/macrolog/internal/body"
	"github.com/macrolab/macrolog/internal/foodlog"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesBodySources(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&foodlog.FoodEntry{}, &body.Measurement{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	insert := "INSERT INTO body_measurements (date, time, weight_lbs, source, created_at) " +
		"VALUES ('2025-01-15', '07:30:00', 182.4, '', '2025-01-15 07:30:00');"
	if err := database.Exec(insert).Error; err != nil {
		testContext.Fatalf("failed to insert legacy row: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored body.Measurement
	if err := database.Where("date = ? AND time = ?", "2025-01-15", "07:30:00").Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload measurement: %v", err)
	}
	if stored.Source != body.SourceManual {
		testContext.Fatalf("expected normalized source, got %q", stored.Source)
	}

	for _, name := range []string{migrationBackfillFoodEntryBatchIDs, migrationNormalizeBodySources} {
		var record migrationRecord
		if err := database.Where("name = ?", name).Take(&record).Error; err != nil {
			testContext.Fatalf("expected migration record %q: %v", name, err)
		}
		if record.AppliedAtSeconds == 0 {
			testContext.Fatalf("expected migration timestamp to be set for %q", name)
		}
	}
}

func TestApplyMigrationsIsIdempotent(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&foodlog.FoodEntry{}, &body.Measurement{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	if err := applyMigrations(database, nil); err != nil {
		testContext.Fatalf("first application failed: %v", err)
	}
	if err := applyMigrations(database, nil); err != nil {
		testContext.Fatalf("second application failed: %v", err)
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count records: %v", err)
	}
	if count != 2 {
		testContext.Fatalf("expected 2 migration records, got %d", count)
	}
}
