package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
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
	opServiceNew = "exercise.service.new"
	opCreate     = "exercise.create"
	opGet        = "exercise.get"
	opListByDate = "exercise.list_by_date"
	opRecent     = "exercise.recent"
	opUpdate     = "exercise.update"
	opDelete     = "exercise.delete"
)

// Entry is one logged exercise session. Details is an opaque key-value
// payload stored and returned verbatim; the server never interprets it.
type Entry struct {
	ID              uint      `gorm:"column:id;primaryKey" json:"id"`
	Date            string    `gorm:"column:date;size:10;not null;index:idx_exercises_date" json:"date"`
	ExerciseType    string    `gorm:"column:exercise_type;size:190;not null" json:"exercise_type"`
	DurationMinutes int       `gorm:"column:duration_minutes;not null" json:"duration_minutes"`
	DetailsJSON     string    `gorm:"column:details;type:text;not null;default:''" json:"-"`
	CreatedAt       time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "exercises"
}

// Details decodes the opaque payload, or nil when none was stored.
func (e Entry) Details() (map[string]any, error) {
	if e.DetailsJSON == "" {
		return nil, nil
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(e.DetailsJSON), &details); err != nil {
		return nil, err
	}
	return details, nil
}

// ServiceConfig wires the exercise log dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service stores exercise sessions.
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

// CreateParams carries the fields for a new exercise entry.
type CreateParams struct {
	Date            string
	ExerciseType    string
	DurationMinutes int
	Details         map[string]any
}

// Create inserts an exercise entry.
func (s *Service) Create(ctx context.Context, params CreateParams) (Entry, error) {
	day, err := dates.Parse(params.Date)
	if err != nil {
		return Entry{}, apperr.Validation(opCreate, "invalid_date", err)
	}
	if strings.TrimSpace(params.ExerciseType) == "" {
		return Entry{}, apperr.Validation(opCreate, "missing_type", nil)
	}
	if params.DurationMinutes <= 0 {
		return Entry{}, apperr.Validation(opCreate, "invalid_duration", nil)
	}

	detailsJSON, err := encodeDetails(params.Details)
	if err != nil {
		return Entry{}, apperr.Validation(opCreate, "invalid_details", err)
	}

	entry := Entry{
		Date:            day,
		ExerciseType:    params.ExerciseType,
		DurationMinutes: params.DurationMinutes,
		DetailsJSON:     detailsJSON,
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("date", day))
		return Entry{}, apperr.Internal(opCreate, "insert_failed", err)
	}
	return entry, nil
}

// Get fetches one entry by ID.
func (s *Service) Get(ctx context.Context, entryID uint) (Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Where("id = ?", entryID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, apperr.NotFound(opGet, "exercise_missing", err)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err, zap.Uint("entry_id", entryID))
		return Entry{}, apperr.Internal(opGet, "query_failed", err)
	}
	return entry, nil
}

// ListByDate returns all entries for a date in insertion order.
func (s *Service) ListByDate(ctx context.Context, date string) ([]Entry, error) {
	day, err := dates.Parse(date)
	if err != nil {
		return nil, apperr.Validation(opListByDate, "invalid_date", err)
	}

	entries := make([]Entry, 0)
	if err := s.db.WithContext(ctx).
		Where("date = ?", day).
		Order("id").
		Find(&entries).Error; err != nil {
		s.logError(opListByDate, "query_failed", err, zap.String("date", day))
		return nil, apperr.Internal(opListByDate, "query_failed", err)
	}
	return entries, nil
}

// Recent returns entries from the last n days, newest first.
func (s *Service) Recent(ctx context.Context, days int) ([]Entry, error) {
	if days <= 0 {
		return nil, apperr.Validation(opRecent, "invalid_days", nil)
	}

	cutoff := s.clock().UTC().AddDate(0, 0, -days).Format(dates.Layout)
	entries := make([]Entry, 0)
	if err := s.db.WithContext(ctx).
		Where("date >= ?", cutoff).
		Order("date DESC, id").
		Find(&entries).Error; err != nil {
		s.logError(opRecent, "query_failed", err, zap.Int("days", days))
		return nil, apperr.Internal(opRecent, "query_failed", err)
	}
	return entries, nil
}

// UpdateParams carries a partial entry update. A non-nil Details replaces
// the stored payload wholesale.
type UpdateParams struct {
	Date            *string
	ExerciseType    *string
	DurationMinutes *int
	Details         map[string]any
}

// Update merges the provided fields into an existing entry.
func (s *Service) Update(ctx context.Context, entryID uint, params UpdateParams) (Entry, error) {
	if _, err := s.Get(ctx, entryID); err != nil {
		return Entry{}, err
	}

	changes := map[string]any{}
	if params.Date != nil {
		day, err := dates.Parse(*params.Date)
		if err != nil {
			return Entry{}, apperr.Validation(opUpdate, "invalid_date", err)
		}
		changes["date"] = day
	}
	if params.ExerciseType != nil {
		if strings.TrimSpace(*params.ExerciseType) == "" {
			return Entry{}, apperr.Validation(opUpdate, "missing_type", nil)
		}
		changes["exercise_type"] = *params.ExerciseType
	}
	if params.DurationMinutes != nil {
		if *params.DurationMinutes <= 0 {
			return Entry{}, apperr.Validation(opUpdate, "invalid_duration", nil)
		}
		changes["duration_minutes"] = *params.DurationMinutes
	}
	if params.Details != nil {
		detailsJSON, err := encodeDetails(params.Details)
		if err != nil {
			return Entry{}, apperr.Validation(opUpdate, "invalid_details", err)
		}
		changes["details"] = detailsJSON
	}

	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&Entry{}).
			Where("id = ?", entryID).
			Updates(changes).Error; err != nil {
			s.logError(opUpdate, "update_failed", err, zap.Uint("entry_id", entryID))
			return Entry{}, apperr.Internal(opUpdate, "update_failed", err)
		}
	}

	return s.Get(ctx, entryID)
}

// Delete removes one entry.
func (s *Service) Delete(ctx context.Context, entryID uint) error {
	if _, err := s.Get(ctx, entryID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&Entry{}, entryID).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.Uint("entry_id", entryID))
		return apperr.Internal(opDelete, "delete_failed", err)
	}
	return nil
}

func encodeDetails(details map[string]any) (string, error) {
	if details == nil {
		return "", nil
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
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
	s.logger.Error("exercise service error", attrs...)
}
