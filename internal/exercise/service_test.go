package exercise

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/macrolab/macrolog/internal/apperr"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, clock func() time.Time) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:exercise_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db, Clock: clock})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestCreateStoresDetailsVerbatim(t *testing.T) {
	service := newTestService(t, nil)

	details := map[string]any{
		"distance_miles": 3.1,
		"route":          "riverside loop",
		"intervals":      []any{"5:30", "5:45"},
	}
	entry, err := service.Create(context.Background(), CreateParams{
		Date:            "2025-01-15",
		ExerciseType:    "running",
		DurationMinutes: 32,
		Details:         details,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fetched, err := service.Get(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := fetched.Details()
	if err != nil {
		t.Fatalf("failed to decode details: %v", err)
	}
	if decoded["distance_miles"] != 3.1 || decoded["route"] != "riverside loop" {
		t.Fatalf("details did not round-trip: %v", decoded)
	}
	intervals, ok := decoded["intervals"].([]any)
	if !ok || len(intervals) != 2 || intervals[0] != "5:30" {
		t.Fatalf("nested details did not round-trip: %v", decoded["intervals"])
	}
}

func TestCreateWithoutDetailsStaysNil(t *testing.T) {
	service := newTestService(t, nil)

	entry, err := service.Create(context.Background(), CreateParams{
		Date:            "2025-01-15",
		ExerciseType:    "lifting",
		DurationMinutes: 45,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := entry.Details()
	if err != nil {
		t.Fatalf("failed to decode details: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected nil details, got %v", decoded)
	}
}

func TestCreateValidation(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"malformed date", CreateParams{Date: "Jan 15", ExerciseType: "running", DurationMinutes: 30}},
		{"missing type", CreateParams{Date: "2025-01-15", ExerciseType: "  ", DurationMinutes: 30}},
		{"zero duration", CreateParams{Date: "2025-01-15", ExerciseType: "running", DurationMinutes: 0}},
		{"negative duration", CreateParams{Date: "2025-01-15", ExerciseType: "running", DurationMinutes: -10}},
	}
	for _, testCase := range cases {
		if _, err := service.Create(ctx, testCase.params); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("%s: expected validation error, got %v", testCase.name, err)
		}
	}
}

func TestRecentFiltersByCutoff(t *testing.T) {
	now := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	service := newTestService(t, func() time.Time { return now })
	ctx := context.Background()

	for _, params := range []CreateParams{
		{Date: "2025-01-15", ExerciseType: "running", DurationMinutes: 30},
		{Date: "2025-01-10", ExerciseType: "lifting", DurationMinutes: 45},
		{Date: "2024-12-01", ExerciseType: "cycling", DurationMinutes: 60},
	} {
		if _, err := service.Create(ctx, params); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	entries, err := service.Recent(ctx, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in the last week, got %d", len(entries))
	}
	if entries[0].Date != "2025-01-15" || entries[1].Date != "2025-01-10" {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	if _, err := service.Recent(ctx, 0); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for non-positive window, got %v", err)
	}
}

func TestUpdateReplacesDetailsWholesale(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	entry, err := service.Create(ctx, CreateParams{
		Date:            "2025-01-15",
		ExerciseType:    "running",
		DurationMinutes: 30,
		Details:         map[string]any{"distance_miles": 3.1, "route": "riverside loop"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	duration := 35
	updated, err := service.Update(ctx, entry.ID, UpdateParams{
		DurationMinutes: &duration,
		Details:         map[string]any{"distance_miles": 3.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.DurationMinutes != 35 {
		t.Fatalf("expected merged duration, got %d", updated.DurationMinutes)
	}
	decoded, err := updated.Details()
	if err != nil {
		t.Fatalf("failed to decode details: %v", err)
	}
	if decoded["distance_miles"] != 3.5 {
		t.Fatalf("expected replaced details, got %v", decoded)
	}
	if _, stale := decoded["route"]; stale {
		t.Fatalf("details replacement must drop old keys, got %v", decoded)
	}
	if updated.ExerciseType != "running" {
		t.Fatalf("untouched fields should survive, got %q", updated.ExerciseType)
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	service := newTestService(t, nil)
	ctx := context.Background()

	entry, err := service.Create(ctx, CreateParams{
		Date:            "2025-01-15",
		ExerciseType:    "running",
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Delete(ctx, entry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.Get(ctx, entry.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := service.Delete(ctx, entry.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}
