package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/michaelbrown/rentdesk/internal/directory"
	"github.com/michaelbrown/rentdesk/internal/presets"
)

const dateLayout = "2006-01-02"

// BookingUpdateFunc receives the pre-filled booking produced by
// create_quick_booking. The back-office wizard on the other end applies it;
// this subsystem only invokes the sink.
type BookingUpdateFunc func(ctx context.Context, data presets.PartialBookingData) error

// NewQuickBooking returns the create_quick_booking handler. It merges a
// preset template with smart defaults from the customer's most recent
// booking, pushes the result through the update sink, and returns a
// confirmation payload.
func NewQuickBooking(store directory.Store, library *presets.Library, session *Session, onUpdate BookingUpdateFunc) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		bookingType, _ := args["bookingType"].(string)
		if bookingType == "" {
			return nil, fmt.Errorf("'bookingType' argument is required")
		}

		customerID, _ := args["customerId"].(string)
		if customerID == "" {
			customerID = session.CurrentCustomerID()
		}
		customerName, _ := args["customerName"].(string)

		pickup := time.Now().Truncate(24 * time.Hour)
		if raw, ok := args["pickupDate"].(string); ok && raw != "" {
			parsed, err := time.Parse(dateLayout, raw)
			if err != nil {
				return nil, fmt.Errorf("invalid pickupDate %q, want YYYY-MM-DD", raw)
			}
			pickup = parsed
		}

		// Smart defaults come from the customer's most recent booking, when
		// there is a resolved customer to look up.
		var defaults presets.SmartDefaults
		if customerID != "" {
			last, err := store.LatestBooking(ctx, customerID)
			if err != nil {
				return nil, fmt.Errorf("loading rental history: %w", err)
			}
			if last != nil {
				defaults.VehicleCategory = last.VehicleCategory
				defaults.PickupLocation = last.PickupLocation
			}
			if customerName == "" {
				if c, err := store.GetCustomer(ctx, customerID); err == nil {
					customerName = c.FullName
				}
			}
		}

		data, err := library.Apply(bookingType, pickup, defaults)
		if err != nil {
			return nil, err
		}
		data.CustomerID = customerID
		data.CustomerName = customerName

		// Explicit arguments always win over presets and history.
		if v, ok := args["vehicleCategory"].(string); ok && v != "" {
			data.VehicleCategory = v
		}
		if v, ok := args["pickupLocation"].(string); ok && v != "" {
			data.PickupLocation = v
		}

		if onUpdate != nil {
			if err := onUpdate(ctx, data); err != nil {
				return nil, fmt.Errorf("applying booking update: %w", err)
			}
		}

		return map[string]any{
			"success":      true,
			"bookingType":  bookingType,
			"customerName": customerName,
			"pickupDate":   data.PickupDate.Format(dateLayout),
			"returnDate":   data.ReturnDate.Format(dateLayout),
			"message":      fmt.Sprintf("Prepared a %s booking for %s.", bookingType, customerName),
		}, nil
	}
}

// RegisterBackOffice wires the built-in car-rental tools into a registry.
func RegisterBackOffice(r *Registry, store directory.Store, library *presets.Library, session *Session, onUpdate BookingUpdateFunc) {
	r.Register("search_customer_by_name", NewCustomerSearch(store, session))
	r.Register("create_quick_booking", NewQuickBooking(store, library, session, onUpdate))
}
