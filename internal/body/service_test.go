package body

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/macrolab/macrolog/internal/apperr"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:body_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Measurement{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func floatPtr(value float64) *float64 {
	return &value
}

func strPtr(value string) *string {
	return &value
}

func TestCreateStoresMeasurement(t *testing.T) {
	service := newTestService(t)

	measurement, err := service.Create(context.Background(), CreateParams{
		Date:      "2025-01-15",
		Time:      "07:30:00",
		WeightLbs: floatPtr(182.4),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if measurement.Source != SourceManual {
		t.Fatalf("expected manual source by default, got %q", measurement.Source)
	}
	if measurement.WeightLbs == nil || *measurement.WeightLbs != 182.4 {
		t.Fatalf("unexpected stored weight %v", measurement.WeightLbs)
	}
	if measurement.WaistCm != nil {
		t.Fatalf("waist should stay unset")
	}
}

func TestCreateRequiresWeightOrWaist(t *testing.T) {
	service := newTestService(t)

	_, err := service.Create(context.Background(), CreateParams{
		Date: "2025-01-15",
		Time: "07:30:00",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsNonPositiveValues(t *testing.T) {
	service := newTestService(t)

	_, err := service.Create(context.Background(), CreateParams{
		Date:      "2025-01-15",
		Time:      "07:30:00",
		WeightLbs: floatPtr(-5),
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManualCreateConflictsWithSyncedRow(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Create(ctx, CreateParams{
		Date:      "2025-01-15",
		Time:      "07:30:00",
		WeightLbs: floatPtr(182.4),
		Source:    "withings",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := service.Create(ctx, CreateParams{
		Date:      "2025-01-15",
		Time:      "07:30:00",
		WeightLbs: floatPtr(180.0),
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("manual entry must not clobber a synced row, got %v", err)
	}

	// A different time slot on the same day stays open.
	if _, err := service.Create(ctx, CreateParams{
		Date:      "2025-01-15",
		Time:      "21:00:00",
		WeightLbs: floatPtr(181.0),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManualUpdateConflictsWithSyncedRow(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Create(ctx, CreateParams{
		Date:      "2025-01-10",
		Time:      "07:00:00",
		WeightLbs: floatPtr(182.4),
		Source:    "withings",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manual, err := service.Create(ctx, CreateParams{
		Date:      "2025-01-10",
		Time:      "08:00:00",
		WeightLbs: floatPtr(181.0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = service.Update(ctx, manual.ID, UpdateParams{Time: strPtr("07:00:00")})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("moving onto a synced slot must conflict, got %v", err)
	}

	// The same slot on another day stays open.
	updated, err := service.Update(ctx, manual.ID, UpdateParams{
		Date: strPtr("2025-01-11"),
		Time: strPtr("07:00:00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Date != "2025-01-11" || updated.Time != "07:00:00" {
		t.Fatalf("unexpected moved measurement %+v", updated)
	}

	// Updating values in place never trips the guard against the row itself.
	if _, err := service.Update(ctx, manual.ID, UpdateParams{WeightLbs: floatPtr(180.2)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateSyncedRowIsConflict(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	synced, err := service.Create(ctx, CreateParams{
		Date:      "2025-01-15",
		Time:      "07:30:00",
		WeightLbs: floatPtr(182.4),
		Source:    "withings",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = service.Update(ctx, synced.ID, UpdateParams{WeightLbs: floatPtr(170)})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict editing a synced row, got %v", err)
	}
}

func TestLatestReturnsNewestMeasurement(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	for _, params := range []CreateParams{
		{Date: "2025-01-14", Time: "07:30:00", WeightLbs: floatPtr(183)},
		{Date: "2025-01-15", Time: "07:30:00", WeightLbs: floatPtr(182)},
		{Date: "2025-01-15", Time: "21:00:00", WeightLbs: floatPtr(181)},
	} {
		if _, err := service.Create(ctx, params); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	latest, err := service.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Date != "2025-01-15" || latest.Time != "21:00:00" {
		t.Fatalf("unexpected latest measurement %+v", latest)
	}
}

func TestLatestWithoutRowsIsNotFound(t *testing.T) {
	service := newTestService(t)

	_, err := service.Latest(context.Background())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRangeOrdersNewestDateFirst(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	for _, params := range []CreateParams{
		{Date: "2025-01-13", Time: "07:30:00", WeightLbs: floatPtr(184)},
		{Date: "2025-01-15", Time: "21:00:00", WeightLbs: floatPtr(181)},
		{Date: "2025-01-15", Time: "07:30:00", WeightLbs: floatPtr(182)},
	} {
		if _, err := service.Create(ctx, params); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	measurements, err := service.Range(ctx, "2025-01-13", "2025-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(measurements) != 3 {
		t.Fatalf("expected 3 measurements, got %d", len(measurements))
	}
	if measurements[0].Date != "2025-01-15" || measurements[0].Time != "07:30:00" {
		t.Fatalf("expected newest date first with ascending times, got %+v", measurements[0])
	}
	if measurements[2].Date != "2025-01-13" {
		t.Fatalf("expected oldest date last, got %+v", measurements[2])
	}
}

func TestDeleteRemovesMeasurement(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, CreateParams{
		Date:    "2025-01-15",
		Time:    "07:30:00",
		WaistCm: floatPtr(84.5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Delete(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.Get(ctx, created.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
