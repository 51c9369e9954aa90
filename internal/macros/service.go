package macros

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/macrolab/macrolog/internal/apperr"
	"github.com/macrolab/macrolog/internal/body"
	"github.com/macrolab/macrolog/internal/dates"
	"github.com/macrolab/macrolog/internal/nutrition"
	"github.com/macrolab/macrolog/internal/profile"
	"go.uber.org/zap"
)

var (
	errMissingDatabase  = errors.New("database handle is required")
	errMissingSnapshots = errors.New("snapshot store is required")
	errMissingProfiles  = errors.New("profile source is required")
	noOpLogger          = zap.NewNop()
)

const (
	opServiceNew = "macros.service.new"
	opToday      = "macros.today"
	opRemaining  = "macros.remaining"
	opHistory    = "macros.history"
)

// noteMinimumMet annotates a floor macro whose minimum is already covered.
const noteMinimumMet = "minimum already met"

// proteinSuggestionThresholdG is the remaining protein above which the
// remaining-budget response carries a suggestion.
const proteinSuggestionThresholdG = 20.0

// ProfileSource supplies the configured targets and timezone.
type ProfileSource interface {
	Get(ctx context.Context) (profile.Profile, error)
}

// BodySource supplies measurements for the history join.
type BodySource interface {
	Range(ctx context.Context, start, end string) ([]body.Measurement, error)
}

// ServiceConfig wires the aggregation dependencies.
type ServiceConfig struct {
	Snapshots *SnapshotStore
	Profiles  ProfileSource
	Bodies    BodySource
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service derives target-relative views over the food log sums.
type Service struct {
	snapshots *SnapshotStore
	profiles  ProfileSource
	bodies    BodySource
	clock     func() time.Time
	logger    *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Snapshots == nil {
		return nil, apperr.Internal(opServiceNew, "missing_snapshots", errMissingSnapshots)
	}
	if cfg.Profiles == nil {
		return nil, apperr.Internal(opServiceNew, "missing_profiles", errMissingProfiles)
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
		snapshots: cfg.Snapshots,
		profiles:  cfg.Profiles,
		bodies:    cfg.Bodies,
		clock:     clock,
		logger:    logger,
	}, nil
}

// FloorProgress reports a macro tracked against a min/max range.
type FloorProgress struct {
	Current      float64 `json:"current"`
	Min          int     `json:"min"`
	Max          int     `json:"max"`
	PercentOfMin float64 `json:"percent_of_min"`
}

// CapProgress reports a macro tracked against a ceiling only.
type CapProgress struct {
	Current      float64 `json:"current"`
	Max          int     `json:"max"`
	PercentOfMax float64 `json:"percent_of_max"`
}

// TodayReport joins the current date's live totals with the configured
// targets.
type TodayReport struct {
	Date     string        `json:"date"`
	Calories FloorProgress `json:"calories"`
	Protein  FloorProgress `json:"protein_g"`
	Carbs    FloorProgress `json:"carbs_g"`
	Fats     FloorProgress `json:"fats_g"`
	Sodium   CapProgress   `json:"sodium_mg"`
}

// Today returns live totals for the current date in the profile timezone.
// The snapshot cache is never consulted for the current date.
func (s *Service) Today(ctx context.Context) (TodayReport, error) {
	prof, err := s.profiles.Get(ctx)
	if err != nil {
		return TodayReport{}, err
	}

	today := dates.Today(s.clock, prof.Location())
	totals, err := s.snapshots.ComputeTotals(ctx, today)
	if err != nil {
		return TodayReport{}, err
	}

	targets := prof.TargetRanges()
	return TodayReport{
		Date:     today,
		Calories: floorProgress(float64(totals.Calories), targets.CaloriesMin, targets.CaloriesMax),
		Protein:  floorProgress(totals.ProteinG, targets.ProteinMinG, targets.ProteinMaxG),
		Carbs:    floorProgress(totals.CarbsG, targets.CarbsMinG, targets.CarbsMaxG),
		Fats:     floorProgress(totals.FatsG, targets.FatsMinG, targets.FatsMaxG),
		Sodium: CapProgress{
			Current:      float64(totals.SodiumMg),
			Max:          targets.SodiumMaxMg,
			PercentOfMax: percentOf(float64(totals.SodiumMg), targets.SodiumMaxMg),
		},
	}, nil
}

// CurrentDate resolves today's date in the profile timezone.
func (s *Service) CurrentDate(ctx context.Context) (string, error) {
	prof, err := s.profiles.Get(ctx)
	if err != nil {
		return "", err
	}
	return dates.Today(s.clock, prof.Location()), nil
}

// FloorBudget reports how much of a ranged macro is still open. Min and Max
// never go negative.
type FloorBudget struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Note string  `json:"note,omitempty"`
}

// CapBudget reports the remaining headroom under a ceiling-only macro.
type CapBudget struct {
	Max float64 `json:"max"`
}

// RemainingReport is the remaining-budget view for the current date.
type RemainingReport struct {
	Date       string      `json:"date"`
	Calories   FloorBudget `json:"calories"`
	Protein    FloorBudget `json:"protein_g"`
	Carbs      FloorBudget `json:"carbs_g"`
	Fats       FloorBudget `json:"fats_g"`
	Sodium     CapBudget   `json:"sodium_mg"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Remaining returns today's outstanding budget per macro. Floors already met
// carry an informational note instead of a negative number.
func (s *Service) Remaining(ctx context.Context) (RemainingReport, error) {
	prof, err := s.profiles.Get(ctx)
	if err != nil {
		return RemainingReport{}, err
	}

	today := dates.Today(s.clock, prof.Location())
	totals, err := s.snapshots.ComputeTotals(ctx, today)
	if err != nil {
		return RemainingReport{}, err
	}

	targets := prof.TargetRanges()
	report := RemainingReport{
		Date:     today,
		Calories: floorBudget(float64(totals.Calories), targets.CaloriesMin, targets.CaloriesMax),
		Protein:  floorBudget(totals.ProteinG, targets.ProteinMinG, targets.ProteinMaxG),
		Carbs:    floorBudget(totals.CarbsG, targets.CarbsMinG, targets.CarbsMaxG),
		Fats:     floorBudget(totals.FatsG, targets.FatsMinG, targets.FatsMaxG),
		Sodium:   CapBudget{Max: math.Max(0, float64(targets.SodiumMaxMg)-float64(totals.SodiumMg))},
	}
	if report.Protein.Min > proteinSuggestionThresholdG {
		report.Suggestion = fmt.Sprintf("%.0fg protein still to go, consider a protein-forward meal or snack", report.Protein.Min)
	}
	return report, nil
}

// HistoryDay is one day of the history view. The first measurement of the
// day is surfaced at the top level; the full list stays nested.
type HistoryDay struct {
	Date         string             `json:"date"`
	Totals       nutrition.Totals   `json:"totals"`
	WeightLbs    *float64           `json:"weight_lbs,omitempty"`
	WaistCm      *float64           `json:"waist_cm,omitempty"`
	Measurements []body.Measurement `json:"measurements"`
}

// HistoryPage is a paginated slice of day summaries, newest first.
type HistoryPage struct {
	Days      []HistoryDay `json:"days"`
	TotalDays int          `json:"total_days"`
	Limit     int          `json:"limit"`
	Offset    int          `json:"offset"`
}

// History summarizes the inclusive date range, lazily materializing any
// missing snapshots. Pagination applies to the day list; total_days is the
// calendar day count of the whole range. The current date always sums live.
func (s *Service) History(ctx context.Context, start, end string, limit, offset int) (HistoryPage, error) {
	if limit <= 0 {
		return HistoryPage{}, apperr.Validation(opHistory, "invalid_limit", nil)
	}
	if offset < 0 {
		return HistoryPage{}, apperr.Validation(opHistory, "invalid_offset", nil)
	}

	days, err := dates.Range(start, end)
	if err != nil {
		return HistoryPage{}, apperr.Validation(opHistory, "invalid_range", err)
	}

	prof, err := s.profiles.Get(ctx)
	if err != nil {
		return HistoryPage{}, err
	}
	today := dates.Today(s.clock, prof.Location())

	page := HistoryPage{
		Days:      make([]HistoryDay, 0),
		TotalDays: len(days),
		Limit:     limit,
		Offset:    offset,
	}
	if offset >= len(days) {
		return page, nil
	}
	window := days[offset:]
	if len(window) > limit {
		window = window[:limit]
	}

	measurementsByDate, err := s.measurementsByDate(ctx, start, end)
	if err != nil {
		return HistoryPage{}, err
	}

	for _, day := range window {
		var totals nutrition.Totals
		if day == today {
			totals, err = s.snapshots.ComputeTotals(ctx, day)
		} else {
			var snapshot DailySnapshot
			snapshot, err = s.snapshots.GetOrCreateSnapshot(ctx, day)
			totals = snapshot.Totals()
		}
		if err != nil {
			return HistoryPage{}, err
		}

		entry := HistoryDay{
			Date:         day,
			Totals:       totals,
			Measurements: measurementsByDate[day],
		}
		if entry.Measurements == nil {
			entry.Measurements = make([]body.Measurement, 0)
		}
		if len(entry.Measurements) > 0 {
			first := entry.Measurements[0]
			entry.WeightLbs = first.WeightLbs
			entry.WaistCm = first.WaistCm
		}
		page.Days = append(page.Days, entry)
	}
	return page, nil
}

// measurementsByDate groups the range's body measurements per day, times
// ascending within each day.
func (s *Service) measurementsByDate(ctx context.Context, start, end string) (map[string][]body.Measurement, error) {
	if s.bodies == nil {
		return map[string][]body.Measurement{}, nil
	}
	measurements, err := s.bodies.Range(ctx, start, end)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]body.Measurement, len(measurements))
	for _, measurement := range measurements {
		grouped[measurement.Date] = append(grouped[measurement.Date], measurement)
	}
	return grouped, nil
}

func floorProgress(current float64, min, max int) FloorProgress {
	return FloorProgress{
		Current:      current,
		Min:          min,
		Max:          max,
		PercentOfMin: percentOf(current, min),
	}
}

func floorBudget(current float64, min, max int) FloorBudget {
	budget := FloorBudget{
		Min: math.Max(0, float64(min)-current),
		Max: math.Max(0, float64(max)-current),
	}
	if current >= float64(min) {
		budget.Note = noteMinimumMet
	}
	return budget
}

// percentOf guards the zero-target case: a target of 0 reports 0 percent
// instead of dividing by zero.
func percentOf(current float64, target int) float64 {
	if target <= 0 {
		return 0
	}
	return nutrition.Round1(current / float64(target) * 100)
}
