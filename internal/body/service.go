package body

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
	opServiceNew = "body.service.new"
	opCreate     = "body.create"
	opGet        = "body.get"
	opListByDate = "body.list_by_date"
	opLatest     = "body.latest"
	opRange      = "body.range"
	opUpdate     = "body.update"
	opDelete     = "body.delete"
)

// SourceManual marks rows entered by the user, as opposed to rows pushed by
// the device-sync collaborator.
const SourceManual = "manual"

// Measurement is one time-stamped body measurement. At least one of
// weight_lbs or waist_cm is present.
type Measurement struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Date      string    `gorm:"column:date;size:10;not null;index:idx_body_date_time,priority:1" json:"date"`
	Time      string    `gorm:"column:time;size:8;not null;index:idx_body_date_time,priority:2" json:"time"`
	WeightLbs *float64  `gorm:"column:weight_lbs" json:"weight_lbs,omitempty"`
	WaistCm   *float64  `gorm:"column:waist_cm" json:"waist_cm,omitempty"`
	Source    string    `gorm:"column:source;size:50;not null;default:'manual'" json:"source"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Measurement) TableName() string {
	return "body_measurements"
}

// ServiceConfig wires the body log dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service stores body measurements.
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

// CreateParams carries the fields for a new measurement. An empty Source
// defaults to manual entry.
type CreateParams struct {
	Date      string
	Time      string
	WeightLbs *float64
	WaistCm   *float64
	Source    string
}

// Create inserts a measurement. A manual entry colliding with a synced row
// on (date, time) fails with Conflict rather than silently clobbering the
// synced data.
func (s *Service) Create(ctx context.Context, params CreateParams) (Measurement, error) {
	day, err := dates.Parse(params.Date)
	if err != nil {
		return Measurement{}, apperr.Validation(opCreate, "invalid_date", err)
	}
	clockTime, err := dates.ParseTime(params.Time)
	if err != nil {
		return Measurement{}, apperr.Validation(opCreate, "invalid_time", err)
	}
	if params.WeightLbs == nil && params.WaistCm == nil {
		return Measurement{}, apperr.Validation(opCreate, "missing_measurement", nil)
	}
	if params.WeightLbs != nil && *params.WeightLbs <= 0 {
		return Measurement{}, apperr.Validation(opCreate, "invalid_weight", nil)
	}
	if params.WaistCm != nil && *params.WaistCm <= 0 {
		return Measurement{}, apperr.Validation(opCreate, "invalid_waist", nil)
	}

	source := params.Source
	if source == "" {
		source = SourceManual
	}

	if source == SourceManual {
		if err := s.ensureNoSyncedCollision(ctx, opCreate, day, clockTime, 0); err != nil {
			return Measurement{}, err
		}
	}

	measurement := Measurement{
		Date:      day,
		Time:      clockTime,
		WeightLbs: params.WeightLbs,
		WaistCm:   params.WaistCm,
		Source:    source,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&measurement).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("date", day))
		return Measurement{}, apperr.Internal(opCreate, "insert_failed", err)
	}
	return measurement, nil
}

// Get fetches one measurement by ID.
func (s *Service) Get(ctx context.Context, measurementID uint) (Measurement, error) {
	var measurement Measurement
	err := s.db.WithContext(ctx).Where("id = ?", measurementID).Take(&measurement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Measurement{}, apperr.NotFound(opGet, "measurement_missing", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Uint("measurement_id", measurementID))
		return Measurement{}, apperr.Internal(opGet, "query_failed", err)
	}
	return measurement, nil
}

// ListByDate returns all measurements for a date ordered by time.
func (s *Service) ListByDate(ctx context.Context, date string) ([]Measurement, error) {
	day, err := dates.Parse(date)
	if err != nil {
		return nil, apperr.Validation(opListByDate, "invalid_date", err)
	}

	measurements := make([]Measurement, 0)
	if err := s.db.WithContext(ctx).
		Where("date = ?", day).
		Order("time").
		Find(&measurements).Error; err != nil {
		s.logError(opListByDate, "query_failed", err, zap.String("date", day))
		return nil, apperr.Internal(opListByDate, "query_failed", err)
	}
	return measurements, nil
}

// Latest returns the most recent measurement, or NotFound when none exist.
func (s *Service) Latest(ctx context.Context) (Measurement, error) {
	var measurement Measurement
	err := s.db.WithContext(ctx).
		Order("date DESC, time DESC").
		Take(&measurement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Measurement{}, apperr.NotFound(opLatest, "no_measurements", err)
	}
	if err != nil {
		s.logError(opLatest, "query_failed", err)
		return Measurement{}, apperr.Internal(opLatest, "query_failed", err)
	}
	return measurement, nil
}

// Range returns measurements between start and end inclusive, newest date
// first, times ascending within a day.
func (s *Service) Range(ctx context.Context, start, end string) ([]Measurement, error) {
	startDay, err := dates.Parse(start)
	if err != nil {
		return nil, apperr.Validation(opRange, "invalid_start_date", err)
	}
	endDay, err := dates.Parse(end)
	if err != nil {
		return nil, apperr.Validation(opRange, "invalid_end_date", err)
	}

	measurements := make([]Measurement, 0)
	if err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", startDay, endDay).
		Order("date DESC, time").
		Find(&measurements).Error; err != nil {
		s.logError(opRange, "query_failed", err, zap.String("start", startDay), zap.String("end", endDay))
		return nil, apperr.Internal(opRange, "query_failed", err)
	}
	return measurements, nil
}

// UpdateParams carries a partial measurement update.
type UpdateParams struct {
	Date      *string
	Time      *string
	WeightLbs *float64
	WaistCm   *float64
}

// Update merges the provided fields into an existing measurement. Synced
// rows cannot be edited through the manual path, and moving a manual row
// onto a synced row's (date, time) fails with Conflict.
func (s *Service) Update(ctx context.Context, measurementID uint, params UpdateParams) (Measurement, error) {
	existing, err := s.Get(ctx, measurementID)
	if err != nil {
		return Measurement{}, err
	}
	if existing.Source != SourceManual {
		return Measurement{}, apperr.Conflict(opUpdate, "synced_row", nil)
	}

	changes := map[string]any{}
	finalDate := existing.Date
	finalTime := existing.Time
	if params.Date != nil {
		day, err := dates.Parse(*params.Date)
		if err != nil {
			return Measurement{}, apperr.Validation(opUpdate, "invalid_date", err)
		}
		changes["date"] = day
		finalDate = day
	}
	if params.Time != nil {
		clockTime, err := dates.ParseTime(*params.Time)
		if err != nil {
			return Measurement{}, apperr.Validation(opUpdate, "invalid_time", err)
		}
		changes["time"] = clockTime
		finalTime = clockTime
	}
	if finalDate != existing.Date || finalTime != existing.Time {
		if err := s.ensureNoSyncedCollision(ctx, opUpdate, finalDate, finalTime, measurementID); err != nil {
			return Measurement{}, err
		}
	}
	if params.WeightLbs != nil {
		if *params.WeightLbs <= 0 {
			return Measurement{}, apperr.Validation(opUpdate, "invalid_weight", nil)
		}
		changes["weight_lbs"] = *params.WeightLbs
	}
	if params.WaistCm != nil {
		if *params.WaistCm <= 0 {
			return Measurement{}, apperr.Validation(opUpdate, "invalid_waist", nil)
		}
		changes["waist_cm"] = *params.WaistCm
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&Measurement{}).
			Where("id = ?", measurementID).
			Updates(changes).Error; err != nil {
			s.logError(opUpdate, "update_failed", err, zap.Uint("measurement_id", measurementID))
			return Measurement{}, apperr.Internal(opUpdate, "update_failed", err)
		}
	}

	return s.Get(ctx, measurementID)
}

// Delete removes one measurement.
func (s *Service) Delete(ctx context.Context, measurementID uint) error {
	if _, err := s.Get(ctx, measurementID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&Measurement{}, measurementID).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.Uint("measurement_id", measurementID))
		return apperr.Internal(opDelete, "delete_failed", err)
	}
	return nil
}

func (s *Service) ensureNoSyncedCollision(ctx context.Context, operation, day, clockTime string, excludeID uint) error {
	var count int64
	query := s.db.WithContext(ctx).Model(&Measurement{}).
		Where("date = ? AND time = ? AND source <> ?", day, clockTime, SourceManual)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		s.logError(operation, "collision_check_failed", err, zap.String("date", day))
		return apperr.Internal(operation, "collision_check_failed", err)
	}
	if count > 0 {
		return apperr.Conflict(operation, "synced_row_exists", nil)
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
	s.logger.Error("body service error", attrs...)
}
