package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'musician',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create bands table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bands (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			color VARCHAR(7) NOT NULL DEFAULT '#999999',
			is_solo BOOLEAN NOT NULL DEFAULT FALSE,
			created_by VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create band_members table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS band_members (
			band_id VARCHAR(36) NOT NULL REFERENCES bands(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role VARCHAR(10) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (band_id, user_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create statuses table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS statuses (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(50) NOT NULL UNIQUE,
			color VARCHAR(7) NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create gigs table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS gigs (
			id VARCHAR(36) PRIMARY KEY,
			gig_date DATE NOT NULL,
			band_id VARCHAR(36) NOT NULL REFERENCES bands(id) ON DELETE CASCADE,
			city VARCHAR(255) NOT NULL,
			venue VARCHAR(255) NOT NULL,
			country VARCHAR(100),
			price NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
			currency CHAR(3) NOT NULL,
			start_time VARCHAR(5),
			load_in VARCHAR(5),
			soundcheck VARCHAR(5),
			doors VARCHAR(5),
			curfew VARCHAR(5),
			category VARCHAR(50),
			description TEXT,
			status_id VARCHAR(36) NOT NULL REFERENCES statuses(id),
			owner_id VARCHAR(36) NOT NULL REFERENCES users(id),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create payments table (append-only ledger)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS payments (
			id VARCHAR(36) PRIMARY KEY,
			gig_id VARCHAR(36) NOT NULL REFERENCES gigs(id) ON DELETE CASCADE,
			bulk_group VARCHAR(50),
			amount_eur NUMERIC(12,2) NOT NULL CHECK (amount_eur > 0),
			amount_original NUMERIC(14,2) NOT NULL,
			currency CHAR(3) NOT NULL,
			exchange_rate NUMERIC(12,4),
			payment_date TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create the singleton exchange_rate table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS exchange_rate (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			eur_to_rsd NUMERIC(12,4) NOT NULL,
			rsd_to_eur NUMERIC(12,8) NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Seed the singleton rate row so conversion has a fallback before the
	// first sync run
	_, err = db.Exec(`
		INSERT INTO exchange_rate (id, eur_to_rsd, rsd_to_eur, updated_at)
		VALUES (1, 117.3000, 0.00852515, NOW())
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return err
	}

	// Seed gig statuses
	statuses := []struct{ id, name, color string }{
		{"confirmed", "Confirmed", "#22c55e"},
		{"pencilled", "Pencilled", "#eab308"},
		{"cancelled", "Cancelled", "#ef4444"},
	}
	for _, s := range statuses {
		_, err = db.Exec(`
			INSERT INTO statuses (id, name, color) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, s.id, s.name, s.color)
		if err != nil {
			return err
		}
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_gigs_gig_date ON gigs(gig_date)",
		"CREATE INDEX IF NOT EXISTS idx_gigs_band_id ON gigs(band_id)",
		"CREATE INDEX IF NOT EXISTS idx_payments_gig_id ON payments(gig_id)",
		"CREATE INDEX IF NOT EXISTS idx_payments_bulk_group ON payments(bulk_group)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
