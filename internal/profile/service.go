package profile

import (
	"context"
	"errors"
	"time"

	"github.com/macrolab/macrolog/internal/apperr"
	"github.com/macrolab/macrolog/internal/dates"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

const (
	opServiceNew = "profile.service.new"
	opGet        = "profile.get"
	opUpdate     = "profile.update"
)

// singletonID keys the one profile row. The system tracks a single user, so
// the profile is a fixed-key configuration record, not per-user state.
const singletonID = 1

// Default target ranges applied when the profile is first read.
const (
	defaultCaloriesMin = 1800
	defaultCaloriesMax = 2200
	defaultProteinMin  = 150
	defaultProteinMax  = 200
	defaultCarbsMin    = 150
	defaultCarbsMax    = 250
	defaultFatsMin     = 50
	defaultFatsMax     = 80
	defaultSodiumMax   = 2300
	defaultTimezone    = "UTC"
)

// Profile is the singleton row holding macro target ranges and optional
// personal details.
type Profile struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	Birthdate    *string    `gorm:"column:birthdate;size:10" json:"birthdate,omitempty"`
	HeightInches *float64   `gorm:"column:height_inches" json:"height_inches,omitempty"`
	Timezone     string     `gorm:"column:timezone;size:50;not null;default:'UTC'" json:"timezone"`
	CaloriesMin  int        `gorm:"column:calories_min;not null" json:"calories_min"`
	CaloriesMax  int        `gorm:"column:calories_max;not null" json:"calories_max"`
	ProteinMinG  int        `gorm:"column:protein_min_g;not null" json:"protein_min_g"`
	ProteinMaxG  int        `gorm:"column:protein_max_g;not null" json:"protein_max_g"`
	CarbsMinG    int        `gorm:"column:carbs_min_g;not null" json:"carbs_min_g"`
	CarbsMaxG    int        `gorm:"column:carbs_max_g;not null" json:"carbs_max_g"`
	FatsMinG     int        `gorm:"column:fats_min_g;not null" json:"fats_min_g"`
	FatsMaxG     int        `gorm:"column:fats_max_g;not null" json:"fats_max_g"`
	SodiumMaxMg  int        `gorm:"column:sodium_max_mg;not null" json:"sodium_max_mg"`
	UpdatedAt    *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
}

// TableName provides the explicit table binding for GORM.
func (Profile) TableName() string {
	return "user_profile"
}

// Targets groups the configured macro ranges for the aggregation engine.
type Targets struct {
	CaloriesMin int `json:"calories_min"`
	CaloriesMax int `json:"calories_max"`
	ProteinMinG int `json:"protein_min_g"`
	ProteinMaxG int `json:"protein_max_g"`
	CarbsMinG   int `json:"carbs_min_g"`
	CarbsMaxG   int `json:"carbs_max_g"`
	FatsMinG    int `json:"fats_min_g"`
	FatsMaxG    int `json:"fats_max_g"`
	SodiumMaxMg int `json:"sodium_max_mg"`
}

// TargetRanges extracts the configured ranges.
func (p Profile) TargetRanges() Targets {
	return Targets{
		CaloriesMin: p.CaloriesMin,
		CaloriesMax: p.CaloriesMax,
		ProteinMinG: p.ProteinMinG,
		ProteinMaxG: p.ProteinMaxG,
		CarbsMinG:   p.CarbsMinG,
		CarbsMaxG:   p.CarbsMaxG,
		FatsMinG:    p.FatsMinG,
		FatsMaxG:    p.FatsMaxG,
		SodiumMaxMg: p.SodiumMaxMg,
	}
}

// Location resolves the profile timezone, falling back to UTC.
func (p Profile) Location() *time.Location {
	location, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}

// Age derives the user's age in years at the given moment, or nil without a
// birthdate.
func (p Profile) Age(now time.Time) *int {
	if p.Birthdate == nil {
		return nil
	}
	born, err := time.Parse(dates.Layout, *p.Birthdate)
	if err != nil {
		return nil
	}
	years := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		years--
	}
	return &years
}

// ServiceConfig wires the profile store dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages the singleton profile row.
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

// Get returns the profile, creating it with documented defaults on first read.
func (s *Service) Get(ctx context.Context) (Profile, error) {
	var row Profile
	err := s.db.WithContext(ctx).Where("id = ?", singletonID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = defaultProfile()
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			s.logError(opGet, "default_insert_failed", err)
			return Profile{}, apperr.Internal(opGet, "default_insert_failed", err)
		}
		return row, nil
	}
	if err != nil {
		s.logError(opGet, "query_failed", err)
		return Profile{}, apperr.Internal(opGet, "query_failed", err)
	}
	return row, nil
}

// UpdateParams carries a partial profile update. Nil fields are left as-is.
type UpdateParams struct {
	Birthdate    *string
	HeightInches *float64
	Timezone     *string
	CaloriesMin  *int
	CaloriesMax  *int
	ProteinMinG  *int
	ProteinMaxG  *int
	CarbsMinG    *int
	CarbsMaxG    *int
	FatsMinG     *int
	FatsMaxG     *int
	SodiumMaxMg  *int
}

// Update merges the provided fields into the profile, creating the default
// row first if needed.
func (s *Service) Update(ctx context.Context, params UpdateParams) (Profile, error) {
	if _, err := s.Get(ctx); err != nil {
		return Profile{}, err
	}

	changes := map[string]any{}
	if params.Birthdate != nil {
		day, err := dates.Parse(*params.Birthdate)
		if err != nil {
			return Profile{}, apperr.Validation(opUpdate, "invalid_birthdate", err)
		}
		changes["birthdate"] = day
	}
	if params.HeightInches != nil {
		if *params.HeightInches <= 0 {
			return Profile{}, apperr.Validation(opUpdate, "invalid_height", nil)
		}
		changes["height_inches"] = *params.HeightInches
	}
	if params.Timezone != nil {
		if _, err := time.LoadLocation(*params.Timezone); err != nil {
			return Profile{}, apperr.Validation(opUpdate, "invalid_timezone", err)
		}
		changes["timezone"] = *params.Timezone
	}
	if params.CaloriesMin != nil {
		changes["calories_min"] = *params.CaloriesMin
	}
	if params.CaloriesMax != nil {
		changes["calories_max"] = *params.CaloriesMax
	}
	if params.ProteinMinG != nil {
		changes["protein_min_g"] = *params.ProteinMinG
	}
	if params.ProteinMaxG != nil {
		changes["protein_max_g"] = *params.ProteinMaxG
	}
	if params.CarbsMinG != nil {
		changes["carbs_min_g"] = *params.CarbsMinG
	}
	if params.CarbsMaxG != nil {
		changes["carbs_max_g"] = *params.CarbsMaxG
	}
	if params.FatsMinG != nil {
		changes["fats_min_g"] = *params.FatsMinG
	}
	if params.FatsMaxG != nil {
		changes["fats_max_g"] = *params.FatsMaxG
	}
	if params.SodiumMaxMg != nil {
		changes["sodium_max_mg"] = *params.SodiumMaxMg
	}

	if len(changes) > 0 {
		changes["updated_at"] = s.clock().UTC()
		if err := s.db.WithContext(ctx).Model(&Profile{}).
			Where("id = ?", singletonID).
			Updates(changes).Error; err != nil {
			s.logError(opUpdate, "update_failed", err)
			return Profile{}, apperr.Internal(opUpdate, "update_failed", err)
		}
	}

	return s.Get(ctx)
}

func defaultProfile() Profile {
	return Profile{
		ID:          singletonID,
		Timezone:    defaultTimezone,
		CaloriesMin: defaultCaloriesMin,
		CaloriesMax: defaultCaloriesMax,
		ProteinMinG: defaultProteinMin,
		ProteinMaxG: defaultProteinMax,
		CarbsMinG:   defaultCarbsMin,
		CarbsMaxG:   defaultCarbsMax,
		FatsMinG:    defaultFatsMin,
		FatsMaxG:    defaultFatsMax,
		SodiumMaxMg: defaultSodiumMax,
	}
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
	s.logger.Error("profile service error", attrs...)
}
