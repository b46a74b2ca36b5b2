package tools_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/michaelbrown/rentdesk/internal/directory"
	"github.com/michaelbrown/rentdesk/internal/presets"
	"github.com/michaelbrown/rentdesk/internal/tools"
)

// fakeStore is an in-memory directory.Store with scripted search results.
type fakeStore struct {
	matches   []directory.Match
	searchErr error
	customers map[string]directory.Customer
	latest    map[string]directory.Booking
}

func (f *fakeStore) SearchCustomersByName(ctx context.Context, name string) ([]directory.Match, error) {
	return f.matches, f.searchErr
}

func (f *fakeStore) GetCustomer(ctx context.Context, id string) (*directory.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer not found: %s", id)
	}
	return &c, nil
}

func (f *fakeStore) LatestBooking(ctx context.Context, customerID string) (*directory.Booking, error) {
	b, ok := f.latest[customerID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeStore) InsertCustomer(ctx context.Context, c *directory.Customer) error { return nil }
func (f *fakeStore) InsertBooking(ctx context.Context, b *directory.Booking) error   { return nil }
func (f *fakeStore) Close() error                                                    { return nil }

func match(id, name string, score int) directory.Match {
	return directory.Match{
		Customer: directory.Customer{ID: id, FullName: name, Phone: "555-0100", Email: id + "@example.com"},
		Score:    score,
	}
}

func searchRegistry(store directory.Store, session *tools.Session) *tools.Registry {
	r := tools.NewRegistry()
	r.Register("search_customer_by_name", tools.NewCustomerSearch(store, session))
	return r
}

func TestCustomerSearchAmbiguous(t *testing.T) {
	store := &fakeStore{matches: []directory.Match{
		match("cu-1", "Ali Hassan", 95),
		match("cu-2", "Ali Haddad", 88),
		match("cu-3", "Salim Ali", 40),
	}}
	session := tools.NewSession()
	r := searchRegistry(store, session)

	res := r.Dispatch(context.Background(), call("search_customer_by_name", `{"name":"Ali"}`))
	payload := payloadMap(t, res)
	if payload["error"] != "ambiguous_customer" {
		t.Fatalf("error = %v, want ambiguous_customer", payload["error"])
	}

	options, ok := payload["options"].([]map[string]any)
	if !ok {
		t.Fatalf("options is %T", payload["options"])
	}
	if len(options) != 2 {
		t.Fatalf("got %d options, want exactly the 2 confident matches", len(options))
	}
	// Candidate order from the search is preserved.
	if options[0]["id"] != "cu-1" || options[1]["id"] != "cu-2" {
		t.Errorf("options out of order: %v", options)
	}
	if session.CurrentCustomerID() != "" {
		t.Error("ambiguous result must not set the current customer")
	}
}

func TestCustomerSearchSingleMatch(t *testing.T) {
	store := &fakeStore{matches: []directory.Match{
		match("cu-1", "Ali Hassan", 95),
		match("cu-3", "Salim Ali", 40),
	}}
	session := tools.NewSession()
	r := searchRegistry(store, session)

	res := r.Dispatch(context.Background(), call("search_customer_by_name", `{"name":"Ali"}`))
	payload := payloadMap(t, res)
	if payload["success"] != true {
		t.Fatalf("payload = %v, want success", payload)
	}
	customer, _ := payload["customer"].(map[string]any)
	if customer["name"] != "Ali Hassan" {
		t.Errorf("customer = %v", customer)
	}
	if session.CurrentCustomerID() != "cu-1" {
		t.Errorf("current customer = %q, want cu-1", session.CurrentCustomerID())
	}
}

func TestCustomerSearchNotFound(t *testing.T) {
	session := tools.NewSession()
	session.SetCurrentCustomer("cu-existing")
	r := searchRegistry(&fakeStore{}, session)

	res := r.Dispatch(context.Background(), call("search_customer_by_name", `{"name":"Nobody"}`))
	if payloadMap(t, res)["error"] != "customer_not_found" {
		t.Fatalf("payload = %v, want customer_not_found", res.Payload)
	}
	if session.CurrentCustomerID() != "cu-existing" {
		t.Error("not-found result must leave the current customer unchanged")
	}
}

func TestCustomerSearchNoConfidentMatch(t *testing.T) {
	store := &fakeStore{matches: []directory.Match{
		match("cu-1", "Aliyah Stone", 60),
		match("cu-2", "Khalid Ali", 50),
	}}
	r := searchRegistry(store, tools.NewSession())

	res := r.Dispatch(context.Background(), call("search_customer_by_name", `{"name":"Ali"}`))
	if payloadMap(t, res)["error"] != "customer_not_found" {
		t.Fatalf("payload = %v, want customer_not_found for weak matches", res.Payload)
	}
}

func TestCustomerSearchMissingName(t *testing.T) {
	r := searchRegistry(&fakeStore{}, tools.NewSession())

	res := r.Dispatch(context.Background(), call("search_customer_by_name", `{}`))
	if res.Success {
		t.Error("missing name should fail")
	}
}

func TestQuickBookingSmartDefaults(t *testing.T) {
	store := &fakeStore{
		customers: map[string]directory.Customer{
			"cu-1": {ID: "cu-1", FullName: "Ali Hassan"},
		},
		latest: map[string]directory.Booking{
			"cu-1": {ID: "bk-1", CustomerID: "cu-1", VehicleCategory: "suv", PickupLocation: "Airport"},
		},
	}
	session := tools.NewSession()
	session.SetCurrentCustomer("cu-1")

	library := presets.NewLibrary(presets.Preset{
		BookingType: "weekend", DurationDays: 3, VehicleCategory: "compact", PickupLocation: "Downtown",
	})

	var applied presets.PartialBookingData
	sink := func(ctx context.Context, data presets.PartialBookingData) error {
		applied = data
		return nil
	}

	r := tools.NewRegistry()
	tools.RegisterBackOffice(r, store, library, session, sink)

	res := r.Dispatch(context.Background(),
		call("create_quick_booking", `{"bookingType":"weekend","pickupDate":"2026-09-04"}`))
	if !res.Success {
		t.Fatalf("dispatch failed: %+v", res.Payload)
	}

	// History beats the preset template.
	if applied.VehicleCategory != "suv" {
		t.Errorf("vehicle category = %q, want smart default suv", applied.VehicleCategory)
	}
	if applied.PickupLocation != "Airport" {
		t.Errorf("pickup location = %q, want smart default Airport", applied.PickupLocation)
	}
	if applied.CustomerID != "cu-1" || applied.CustomerName != "Ali Hassan" {
		t.Errorf("customer = %q/%q", applied.CustomerID, applied.CustomerName)
	}

	wantPickup := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC)
	if !applied.PickupDate.Equal(wantPickup) {
		t.Errorf("pickup date = %v, want %v", applied.PickupDate, wantPickup)
	}
	if want := wantPickup.AddDate(0, 0, 3); !applied.ReturnDate.Equal(want) {
		t.Errorf("return date = %v, want %v", applied.ReturnDate, want)
	}

	payload := payloadMap(t, res)
	if payload["bookingType"] != "weekend" || payload["customerName"] != "Ali Hassan" {
		t.Errorf("confirmation payload = %v", payload)
	}
	if payload["pickupDate"] != "2026-09-04" || payload["returnDate"] != "2026-09-07" {
		t.Errorf("confirmation dates = %v / %v", payload["pickupDate"], payload["returnDate"])
	}
}

func TestQuickBookingExplicitArgsWin(t *testing.T) {
	store := &fakeStore{
		latest: map[string]directory.Booking{
			"cu-1": {VehicleCategory: "suv", PickupLocation: "Airport"},
		},
	}
	session := tools.NewSession()
	session.SetCurrentCustomer("cu-1")

	var applied presets.PartialBookingData
	r := tools.NewRegistry()
	tools.RegisterBackOffice(r, store, presets.Builtin(), session,
		func(ctx context.Context, data presets.PartialBookingData) error {
			applied = data
			return nil
		})

	res := r.Dispatch(context.Background(), call("create_quick_booking",
		`{"bookingType":"daily","customerName":"Ali Hassan","vehicleCategory":"van","pickupDate":"2026-09-04"}`))
	if !res.Success {
		t.Fatalf("dispatch failed: %+v", res.Payload)
	}
	if applied.VehicleCategory != "van" {
		t.Errorf("vehicle category = %q, want explicit van", applied.VehicleCategory)
	}
}

func TestQuickBookingUnknownType(t *testing.T) {
	r := tools.NewRegistry()
	tools.RegisterBackOffice(r, &fakeStore{}, presets.Builtin(), tools.NewSession(), nil)

	res := r.Dispatch(context.Background(), call("create_quick_booking", `{"bookingType":"decade"}`))
	if res.Success {
		t.Error("unknown booking type should fail")
	}
}

func TestQuickBookingSinkError(t *testing.T) {
	r := tools.NewRegistry()
	tools.RegisterBackOffice(r, &fakeStore{}, presets.Builtin(), tools.NewSession(),
		func(ctx context.Context, data presets.PartialBookingData) error {
			return fmt.Errorf("wizard rejected update")
		})

	res := r.Dispatch(context.Background(), call("create_quick_booking", `{"bookingType":"daily"}`))
	if res.Success {
		t.Error("sink error should fail the tool call")
	}
}
