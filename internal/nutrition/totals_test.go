package nutrition

import "testing"

func TestScaleMultipliesEveryField(t *testing.T) {
	whey := Totals{Calories: 120, ProteinG: 24, CarbsG: 3, FatsG: 1, SodiumMg: 50}

	doubled := whey.Scale(2)
	if doubled != (Totals{Calories: 240, ProteinG: 48, CarbsG: 6, FatsG: 2, SodiumMg: 100}) {
		t.Fatalf("unexpected doubled totals %+v", doubled)
	}

	halved := doubled.Scale(0.5)
	if halved != whey {
		t.Fatalf("unexpected halved totals %+v", halved)
	}
}

func TestScaleZeroYieldsAllZero(t *testing.T) {
	scaled := Totals{Calories: 120, ProteinG: 24, CarbsG: 3, FatsG: 1, SodiumMg: 50}.Scale(0)
	if scaled != (Totals{}) {
		t.Fatalf("expected all-zero totals, got %+v", scaled)
	}
}

func TestScaleRoundsToStoredPrecision(t *testing.T) {
	scaled := Totals{Calories: 100, ProteinG: 10, CarbsG: 1, FatsG: 0.5, SodiumMg: 75}.Scale(1.0 / 3.0)
	if scaled.Calories != 33 {
		t.Fatalf("expected calories 33, got %d", scaled.Calories)
	}
	if scaled.ProteinG != 3.3 {
		t.Fatalf("expected protein 3.3, got %v", scaled.ProteinG)
	}
	if scaled.SodiumMg != 25 {
		t.Fatalf("expected sodium 25, got %d", scaled.SodiumMg)
	}
}

func TestAddAccumulates(t *testing.T) {
	sum := Totals{Calories: 120, ProteinG: 24.5, CarbsG: 3, FatsG: 1, SodiumMg: 50}.
		Add(Totals{Calories: 80, ProteinG: 0.4, CarbsG: 12, FatsG: 2.5, SodiumMg: 150})
	expected := Totals{Calories: 200, ProteinG: 24.9, CarbsG: 15, FatsG: 3.5, SodiumMg: 200}
	if sum != expected {
		t.Fatalf("unexpected sum %+v", sum)
	}
}
