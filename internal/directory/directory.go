package directory

import (
	"context"
	"time"
)

// Customer is one record in the back-office customer directory.
type Customer struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// Match is a customer search hit with its relevance score (0-100).
type Match struct {
	Customer
	Score int `json:"match_score"`
}

// Booking is a past or current rental booking. The conversation tools use a
// customer's most recent booking to derive smart defaults for new ones.
type Booking struct {
	ID              string    `json:"id"`
	CustomerID      string    `json:"customer_id"`
	VehicleCategory string    `json:"vehicle_category"`
	PickupLocation  string    `json:"pickup_location"`
	PickupDate      time.Time `json:"pickup_date"`
	ReturnDate      time.Time `json:"return_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is the lookup interface the conversation tools depend on.
type Store interface {
	// SearchCustomersByName returns scored matches ordered by descending
	// score, then name.
	SearchCustomersByName(ctx context.Context, name string) ([]Match, error)

	// GetCustomer returns a customer by ID.
	GetCustomer(ctx context.Context, id string) (*Customer, error)

	// LatestBooking returns the customer's most recently created booking, or
	// nil if they have none.
	LatestBooking(ctx context.Context, customerID string) (*Booking, error)

	// InsertCustomer adds a customer record.
	InsertCustomer(ctx context.Context, c *Customer) error

	// InsertBooking adds a booking record.
	InsertBooking(ctx context.Context, b *Booking) error

	// Close releases resources.
	Close() error
}
