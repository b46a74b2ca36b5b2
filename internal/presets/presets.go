// Package presets holds the reusable booking templates the quick-booking
// tool starts from, plus the smart-default merge that pre-fills a booking
// from a customer's rental history.
package presets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Preset is a reusable booking template selected by booking type.
type Preset struct {
	BookingType     string `yaml:"booking_type"`
	DurationDays    int    `yaml:"duration_days"`
	VehicleCategory string `yaml:"vehicle_category"`
	PickupLocation  string `yaml:"pickup_location"`
	Notes           string `yaml:"notes"`
}

// SmartDefaults carries field values derived from a customer's most recent
// booking. Empty fields leave the preset's values in place.
type SmartDefaults struct {
	VehicleCategory string
	PickupLocation  string
}

// PartialBookingData is the pre-filled booking handed to the booking-update
// sink. The wizard on the other side fills in whatever is still missing.
type PartialBookingData struct {
	BookingType     string    `json:"booking_type"`
	CustomerID      string    `json:"customer_id,omitempty"`
	CustomerName    string    `json:"customer_name,omitempty"`
	VehicleCategory string    `json:"vehicle_category"`
	PickupLocation  string    `json:"pickup_location,omitempty"`
	PickupDate      time.Time `json:"pickup_date"`
	ReturnDate      time.Time `json:"return_date"`
	Notes           string    `json:"notes,omitempty"`
}

// Library is a set of presets keyed by booking type.
type Library struct {
	presets map[string]Preset
}

// NewLibrary builds a library from explicit presets.
func NewLibrary(presets ...Preset) *Library {
	l := &Library{presets: make(map[string]Preset, len(presets))}
	for _, p := range presets {
		l.presets[p.BookingType] = p
	}
	return l
}

// Builtin returns the default preset set used when no presets directory is
// configured.
func Builtin() *Library {
	return NewLibrary(
		Preset{BookingType: "daily", DurationDays: 1, VehicleCategory: "compact"},
		Preset{BookingType: "weekend", DurationDays: 3, VehicleCategory: "compact"},
		Preset{BookingType: "weekly", DurationDays: 7, VehicleCategory: "midsize"},
		Preset{BookingType: "monthly", DurationDays: 30, VehicleCategory: "midsize"},
	)
}

// Load reads every *.yaml preset file in dir.
func Load(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading presets dir %s: %w", dir, err)
	}

	l := &Library{presets: make(map[string]Preset)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading preset %s: %w", path, err)
		}
		var p Preset
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing preset %s: %w", path, err)
		}
		if p.BookingType == "" {
			return nil, fmt.Errorf("preset %s is missing booking_type", path)
		}
		l.presets[p.BookingType] = p
	}

	if len(l.presets) == 0 {
		return nil, fmt.Errorf("no presets found in %s", dir)
	}
	return l, nil
}

// Types returns the known booking types.
func (l *Library) Types() []string {
	out := make([]string, 0, len(l.presets))
	for t := range l.presets {
		out = append(out, t)
	}
	return out
}

// Apply merges the preset for bookingType with the given pickup date and
// smart defaults. Smart defaults win over the preset's template values;
// duration always comes from the preset.
func (l *Library) Apply(bookingType string, pickup time.Time, d SmartDefaults) (PartialBookingData, error) {
	p, ok := l.presets[bookingType]
	if !ok {
		return PartialBookingData{}, fmt.Errorf("unknown booking type: %s", bookingType)
	}

	data := PartialBookingData{
		BookingType:     bookingType,
		VehicleCategory: p.VehicleCategory,
		PickupLocation:  p.PickupLocation,
		PickupDate:      pickup,
		ReturnDate:      pickup.AddDate(0, 0, p.DurationDays),
		Notes:           p.Notes,
	}
	if d.VehicleCategory != "" {
		data.VehicleCategory = d.VehicleCategory
	}
	if d.PickupLocation != "" {
		data.PickupLocation = d.PickupLocation
	}
	return data, nil
}
