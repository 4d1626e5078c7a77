package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// User roles. Admins manage gigs and settle payments; musicians get
// read access to their bands' calendars.
const (
	RoleAdmin    = "admin"
	RoleMusician = "musician"
)

// User represents an account in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Band represents a band (or an auto-created solo act)
type Band struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	IsSolo    bool      `db:"is_solo" json:"isSolo"`
	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// BandMember links a user to a band
type BandMember struct {
	BandID    string    `db:"band_id" json:"bandId"`
	UserID    string    `db:"user_id" json:"userId"`
	Role      string    `db:"role" json:"role"` // "owner" or "member"
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Status is a gig status lookup entry (confirmed, pencilled, cancelled...)
type Status struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Color string `db:"color" json:"color"`
}

// Gig represents a bookable event. Its balance is never stored: it is always
// price minus the sum of its payments in EUR.
type Gig struct {
	ID          string          `db:"id" json:"id"`
	GigDate     time.Time       `db:"gig_date" json:"gigDate"`
	BandID      string          `db:"band_id" json:"bandId"`
	City        string          `db:"city" json:"city"`
	Venue       string          `db:"venue" json:"venue"`
	Country     sql.NullString  `db:"country" json:"country"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Currency    string          `db:"currency" json:"currency"`
	StartTime   sql.NullString  `db:"start_time" json:"startTime"`
	LoadIn      sql.NullString  `db:"load_in" json:"loadIn"`
	Soundcheck  sql.NullString  `db:"soundcheck" json:"soundcheck"`
	Doors       sql.NullString  `db:"doors" json:"doors"`
	Curfew      sql.NullString  `db:"curfew" json:"curfew"`
	Category    sql.NullString  `db:"category" json:"category"`
	Description sql.NullString  `db:"description" json:"description"`
	StatusID    string          `db:"status_id" json:"statusId"`
	OwnerID     string          `db:"owner_id" json:"ownerId"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// GigListing is a gig row joined with its band, status and paid-to-date
// aggregate, for list and detail views
type GigListing struct {
	Gig
	BandName    string          `db:"band_name" json:"bandName"`
	BandColor   string          `db:"band_color" json:"bandColor"`
	StatusName  string          `db:"status_name" json:"statusName"`
	StatusColor string          `db:"status_color" json:"statusColor"`
	PaidAmount  decimal.Decimal `db:"paid_amount" json:"paidAmount"`
}

// UnpaidGig is a gig with an open balance, as fed into the settlement
// waterfall
type UnpaidGig struct {
	ID          string          `db:"id" json:"id"`
	GigDate     time.Time       `db:"gig_date" json:"gigDate"`
	Venue       string          `db:"venue" json:"venue"`
	City        string          `db:"city" json:"city"`
	BandID      string          `db:"band_id" json:"bandId"`
	BandName    string          `db:"band_name" json:"bandName"`
	Price       decimal.Decimal `db:"price" json:"price"`
	TotalPaid   decimal.Decimal `db:"total_paid" json:"totalPaid"`
	Outstanding decimal.Decimal `db:"outstanding" json:"outstanding"`
}

// Payment is an immutable ledger entry against exactly one gig. Rows are
// inserted once by the settlement engine and never updated or deleted.
type Payment struct {
	ID             string              `db:"id" json:"id"`
	GigID          string              `db:"gig_id" json:"gigId"`
	BulkGroup      sql.NullString      `db:"bulk_group" json:"bulkGroup"`
	AmountEUR      decimal.Decimal     `db:"amount_eur" json:"amountEur"`
	AmountOriginal decimal.Decimal     `db:"amount_original" json:"amountOriginal"`
	Currency       string              `db:"currency" json:"currency"`
	ExchangeRate   decimal.NullDecimal `db:"exchange_rate" json:"exchangeRate"`
	PaymentDate    time.Time           `db:"payment_date" json:"paymentDate"`
}

// ExchangeRate is the singleton EUR↔RSD conversion record, refreshed by the
// background sync job
type ExchangeRate struct {
	ID        int             `db:"id" json:"id"`
	EurToRsd  decimal.Decimal `db:"eur_to_rsd" json:"eurToRsd"`
	RsdToEur  decimal.Decimal `db:"rsd_to_eur" json:"rsdToEur"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}
