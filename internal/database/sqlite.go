package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/macrolab/macrolog/internal/body"
	"github.com/macrolab/macrolog/internal/exercise"
	"github.com/macrolab/macrolog/internal/foodlog"
	"github.com/macrolab/macrolog/internal/ingredients"
	"github.com/macrolab/macrolog/internal/macros"
	"github.com/macrolab/macrolog/internal/profile"
	"github.com/macrolab/macrolog/internal/recipes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
// The connection pool is capped at one: SQLite is the single writer here.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&ingredients.Ingredient{},
		&recipes.Recipe{},
		&recipes.RecipeItem{},
		&foodlog.FoodEntry{},
		&macros.DailySnapshot{},
		&profile.Profile{},
		&body.Measurement{},
		&exercise.Entry{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
