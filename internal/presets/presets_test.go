package presets

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyMergesSmartDefaults(t *testing.T) {
	l := NewLibrary(Preset{
		BookingType:     "weekend",
		DurationDays:    3,
		VehicleCategory: "compact",
		PickupLocation:  "Downtown",
	})

	pickup := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	got, err := l.Apply("weekend", pickup, SmartDefaults{VehicleCategory: "suv"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got.VehicleCategory != "suv" {
		t.Errorf("vehicle category = %q, want smart default %q", got.VehicleCategory, "suv")
	}
	if got.PickupLocation != "Downtown" {
		t.Errorf("pickup location = %q, want preset %q", got.PickupLocation, "Downtown")
	}
	if want := pickup.AddDate(0, 0, 3); !got.ReturnDate.Equal(want) {
		t.Errorf("return date = %v, want %v", got.ReturnDate, want)
	}
}

func TestApplyUnknownBookingType(t *testing.T) {
	l := Builtin()
	if _, err := l.Apply("decade", time.Now(), SmartDefaults{}); err == nil {
		t.Fatal("expected error for unknown booking type")
	}
}

func TestBuiltinCoversCommonTypes(t *testing.T) {
	l := Builtin()
	for _, bt := range []string{"daily", "weekend", "weekly", "monthly"} {
		if _, err := l.Apply(bt, time.Now(), SmartDefaults{}); err != nil {
			t.Errorf("Apply(%q): %v", bt, err)
		}
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "weekend.yaml", `
booking_type: weekend
duration_days: 3
vehicle_category: convertible
pickup_location: Marina
notes: include sunday return
`)
	writePreset(t, dir, "ignore.txt", "not a preset")

	l, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	pickup := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	got, err := l.Apply("weekend", pickup, SmartDefaults{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.VehicleCategory != "convertible" {
		t.Errorf("vehicle category = %q, want %q", got.VehicleCategory, "convertible")
	}
	if got.Notes != "include sunday return" {
		t.Errorf("notes = %q", got.Notes)
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for directory with no presets")
	}
}

func writePreset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
