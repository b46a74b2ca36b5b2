package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/michaelbrown/rentdesk/internal/directory"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements directory.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SearchCustomersByName(ctx context.Context, name string) ([]directory.Match, error) {
	query := strings.TrimSpace(name)
	if query == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, phone, email FROM customers
		WHERE full_name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY full_name`, query)
	if err != nil {
		return nil, fmt.Errorf("searching customers: %w", err)
	}
	defer rows.Close()

	var matches []directory.Match
	for rows.Next() {
		var c directory.Customer
		if err := rows.Scan(&c.ID, &c.FullName, &c.Phone, &c.Email); err != nil {
			return nil, err
		}
		matches = append(matches, directory.Match{Customer: c, Score: matchScore(c.FullName, query)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Highest confidence first; the stable sort keeps the name ordering from
	// the query for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// matchScore grades how well a stored full name matches the query, 0-100.
func matchScore(fullName, query string) int {
	n := strings.ToLower(fullName)
	q := strings.ToLower(query)
	switch {
	case n == q:
		return 100
	case wordMatch(n, q):
		return 85
	case strings.HasPrefix(n, q):
		return 75
	default:
		return 50
	}
}

// wordMatch reports whether the query equals a whole word of the name, e.g.
// "ali" against "Ali Hassan".
func wordMatch(name, query string) bool {
	for _, w := range strings.Fields(name) {
		if w == query {
			return true
		}
	}
	return false
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*directory.Customer, error) {
	var c directory.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, phone, email FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.FullName, &c.Phone, &c.Email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading customer: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) LatestBooking(ctx context.Context, customerID string) (*directory.Booking, error) {
	var b directory.Booking
	var pickup, ret, created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, vehicle_category, pickup_location, pickup_date, return_date, created_at
		FROM bookings WHERE customer_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, customerID).
		Scan(&b.ID, &b.CustomerID, &b.VehicleCategory, &b.PickupLocation, &pickup, &ret, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest booking: %w", err)
	}
	b.PickupDate, _ = time.Parse(time.RFC3339, pickup)
	b.ReturnDate, _ = time.Parse(time.RFC3339, ret)
	b.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &b, nil
}

func (s *SQLiteStore) InsertCustomer(ctx context.Context, c *directory.Customer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, full_name, phone, email) VALUES (?, ?, ?, ?)`,
		c.ID, c.FullName, c.Phone, c.Email,
	)
	if err != nil {
		return fmt.Errorf("inserting customer: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertBooking(ctx context.Context, b *directory.Booking) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, customer_id, vehicle_category, pickup_location, pickup_date, return_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CustomerID, b.VehicleCategory, b.PickupLocation,
		b.PickupDate.UTC().Format(time.RFC3339), b.ReturnDate.UTC().Format(time.RFC3339),
		b.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting booking: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
