package profile

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
	dsn := fmt.Sprintf("file:profile_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Profile{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestGetCreatesDefaultsOnFirstRead(t *testing.T) {
	service := newTestService(t)

	profile, err := service.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.CaloriesMin != 1800 || profile.CaloriesMax != 2200 {
		t.Fatalf("unexpected default calorie targets %+v", profile)
	}
	if profile.SodiumMaxMg != 2300 {
		t.Fatalf("unexpected default sodium max %d", profile.SodiumMaxMg)
	}
	if profile.Timezone != "UTC" {
		t.Fatalf("unexpected default timezone %q", profile.Timezone)
	}
	if profile.Birthdate != nil || profile.HeightInches != nil {
		t.Fatalf("personal details should default to unset")
	}

	again, err := service.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != profile.ID {
		t.Fatalf("repeated reads must return the same singleton row")
	}
}

func TestUpdateMergesPartialFields(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	proteinMin := 160
	birthdate := "1990-06-15"
	updated, err := service.Update(ctx, UpdateParams{ProteinMinG: &proteinMin, Birthdate: &birthdate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ProteinMinG != 160 {
		t.Fatalf("expected merged protein min, got %d", updated.ProteinMinG)
	}
	if updated.Birthdate == nil || *updated.Birthdate != "1990-06-15" {
		t.Fatalf("expected merged birthdate, got %v", updated.Birthdate)
	}
	if updated.CaloriesMin != 1800 {
		t.Fatalf("untouched targets should keep defaults, got %d", updated.CaloriesMin)
	}
	if updated.UpdatedAt == nil {
		t.Fatalf("expected updated_at to be set")
	}
}

func TestUpdateRejectsMalformedBirthdate(t *testing.T) {
	service := newTestService(t)

	birthdate := "June 15th"
	_, err := service.Update(context.Background(), UpdateParams{Birthdate: &birthdate})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateRejectsUnknownTimezone(t *testing.T) {
	service := newTestService(t)

	timezone := "Mars/Olympus_Mons"
	_, err := service.Update(context.Background(), UpdateParams{Timezone: &timezone})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAgeDerivedFromBirthdate(t *testing.T) {
	birthdate := "1990-06-15"
	profile := Profile{Birthdate: &birthdate}

	now := time.Date(2025, time.June, 14, 12, 0, 0, 0, time.UTC)
	if age := profile.Age(now); age == nil || *age != 34 {
		t.Fatalf("expected age 34 the day before the birthday, got %v", age)
	}

	now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	if age := profile.Age(now); age == nil || *age != 35 {
		t.Fatalf("expected age 35 on the birthday, got %v", age)
	}

	if age := (Profile{}).Age(now); age != nil {
		t.Fatalf("expected nil age without a birthdate, got %v", age)
	}
}
