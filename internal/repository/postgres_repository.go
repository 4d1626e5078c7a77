package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/tekumsceh/gigstr/internal/models"
	"github.com/tekumsceh/gigstr/internal/money"
)

// Sentinel errors for the settlement paths. Callers distinguish user-facing
// rejections (not found, already settled) from storage failures that rolled
// back a transaction.
var (
	ErrGigNotFound      = errors.New("gig not found")
	ErrAlreadySettled   = errors.New("gig is already fully paid")
	ErrSettlementFailed = errors.New("settlement failed")
)

// BulkEntry is one row of a confirmed bulk allocation to persist.
type BulkEntry struct {
	GigID     string
	AmountEUR decimal.Decimal
}

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Band operations
	CreateBand(ctx context.Context, band *models.Band) error
	GetUserBands(ctx context.Context, userID string) ([]models.Band, error)
	ListBands(ctx context.Context) ([]models.Band, error)

	// Status lookup
	ListStatuses(ctx context.Context) ([]models.Status, error)

	// Gig operations
	CreateGig(ctx context.Context, gig *models.Gig) error
	UpdateGig(ctx context.Context, gig *models.Gig) error
	DeleteGig(ctx context.Context, gigID string) error
	GetGig(ctx context.Context, gigID string) (*models.GigListing, error)
	ListGigs(ctx context.Context, filter models.GigListFilter) ([]models.GigListing, error)
	FindConflict(ctx context.Context, date time.Time, venue string) (*models.GigListing, error)
	ListGigYears(ctx context.Context) ([]int, error)

	// Balance queries
	GigBalance(ctx context.Context, gigID string) (decimal.Decimal, error)
	IsFullyPaid(ctx context.Context, gigID string) (bool, error)
	ListUnpaidGigs(ctx context.Context, asOf time.Time) ([]models.UnpaidGig, error)

	// Settlement operations
	SettleGigInFull(ctx context.Context, gigID string) (*models.Payment, error)
	InsertBulkPayments(ctx context.Context, bulkGroup string, entries []BulkEntry, currency money.Currency, rate decimal.Decimal) (int, error)
	GetPaymentsByGig(ctx context.Context, gigID string) ([]models.Payment, error)

	// Exchange rate
	GetExchangeRate(ctx context.Context) (*models.ExchangeRate, error)
	UpdateExchangeRate(ctx context.Context, eurToRsd, rsdToEur decimal.Decimal) error
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleMusician
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Password, user.Role, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

// Band repository methods
func (r *PostgresRepository) CreateBand(ctx context.Context, band *models.Band) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Generate a new UUID if not provided
	if band.ID == "" {
		band.ID = uuid.New().String()
	}
	if band.Color == "" {
		band.Color = "#999999"
	}

	now := time.Now().UTC()
	band.CreatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bands (id, name, color, is_solo, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		band.ID, band.Name, band.Color, band.IsSolo, band.CreatedBy, band.CreatedAt)
	if err != nil {
		return err
	}

	// The creator becomes the band owner
	_, err = tx.ExecContext(ctx,
		`INSERT INTO band_members (band_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4)`,
		band.ID, band.CreatedBy, "owner", now)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetUserBands(ctx context.Context, userID string) ([]models.Band, error) {
	query := `
		SELECT b.* FROM bands b
		JOIN band_members bm ON b.id = bm.band_id
		WHERE bm.user_id = $1
		ORDER BY b.created_at ASC
	`

	var bands []models.Band
	err := r.db.SelectContext(ctx, &bands, query, userID)
	if err != nil {
		return nil, err
	}

	return bands, nil
}

func (r *PostgresRepository) ListBands(ctx context.Context) ([]models.Band, error) {
	var bands []models.Band
	err := r.db.SelectContext(ctx, &bands, `SELECT * FROM bands ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}

	return bands, nil
}

func (r *PostgresRepository) ListStatuses(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status
	err := r.db.SelectContext(ctx, &statuses, `SELECT * FROM statuses ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}

	return statuses, nil
}

// gigListingSelect joins a gig with its band, status and paid-to-date
// aggregate. The balance is always derived from the payments ledger, never
// stored on the gig row.
const gigListingSelect = `
	SELECT g.*,
		b.name AS band_name, b.color AS band_color,
		s.name AS status_name, s.color AS status_color,
		COALESCE((SELECT SUM(p.amount_eur) FROM payments p WHERE p.gig_id = g.id), 0) AS paid_amount
	FROM gigs g
	JOIN bands b ON g.band_id = b.id
	JOIN statuses s ON g.status_id = s.id
`

// Gig repository methods
func (r *PostgresRepository) CreateGig(ctx context.Context, gig *models.Gig) error {
	query := `
		INSERT INTO gigs (id, gig_date, band_id, city, venue, country, price, currency,
			start_time, load_in, soundcheck, doors, curfew, category, description,
			status_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	if gig.ID == "" {
		gig.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	gig.CreatedAt = now
	gig.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		gig.ID, gig.GigDate, gig.BandID, gig.City, gig.Venue, gig.Country,
		gig.Price, gig.Currency, gig.StartTime, gig.LoadIn, gig.Soundcheck,
		gig.Doors, gig.Curfew, gig.Category, gig.Description,
		gig.StatusID, gig.OwnerID, gig.CreatedAt, gig.UpdatedAt)

	return err
}

func (r *PostgresRepository) UpdateGig(ctx context.Context, gig *models.Gig) error {
	query := `
		UPDATE gigs SET
			gig_date = $1, band_id = $2, city = $3, venue = $4, country = $5,
			price = $6, currency = $7, start_time = $8, load_in = $9,
			soundcheck = $10, doors = $11, curfew = $12, category = $13,
			description = $14, status_id = $15, updated_at = $16
		WHERE id = $17
	`

	gig.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		gig.GigDate, gig.BandID, gig.City, gig.Venue, gig.Country,
		gig.Price, gig.Currency, gig.StartTime, gig.LoadIn,
		gig.Soundcheck, gig.Doors, gig.Curfew, gig.Category,
		gig.Description, gig.StatusID, gig.UpdatedAt, gig.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGigNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteGig(ctx context.Context, gigID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gigs WHERE id = $1`, gigID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGigNotFound
	}

	return nil
}

func (r *PostgresRepository) GetGig(ctx context.Context, gigID string) (*models.GigListing, error) {
	query := gigListingSelect + ` WHERE g.id = $1`

	var gig models.GigListing
	err := r.db.GetContext(ctx, &gig, query, gigID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Gig not found
		}
		return nil, err
	}

	return &gig, nil
}

func (r *PostgresRepository) ListGigs(ctx context.Context, filter models.GigListFilter) ([]models.GigListing, error) {
	query := gigListingSelect

	var whereClauses []string
	var args []interface{}

	addClause := func(clause string, value interface{}) {
		args = append(args, value)
		whereClauses = append(whereClauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.StatusID != "" && filter.StatusID != "all" {
		addClause("g.status_id = $%d", filter.StatusID)
	}
	if filter.Year > 0 {
		addClause("EXTRACT(YEAR FROM g.gig_date) = $%d", filter.Year)
	}
	switch filter.Timeline {
	case "upcoming":
		whereClauses = append(whereClauses, "g.gig_date >= CURRENT_DATE")
	case "past":
		whereClauses = append(whereClauses, "g.gig_date < CURRENT_DATE")
	}
	switch filter.Paid {
	case "paid":
		whereClauses = append(whereClauses,
			"COALESCE((SELECT SUM(p.amount_eur) FROM payments p WHERE p.gig_id = g.id), 0) >= g.price")
	case "unpaid":
		whereClauses = append(whereClauses,
			"COALESCE((SELECT SUM(p.amount_eur) FROM payments p WHERE p.gig_id = g.id), 0) < g.price")
	}

	for i, clause := range whereClauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += ` ORDER BY g.gig_date ASC`

	var gigs []models.GigListing
	err := r.db.SelectContext(ctx, &gigs, query, args...)
	if err != nil {
		return nil, err
	}

	return gigs, nil
}

func (r *PostgresRepository) FindConflict(ctx context.Context, date time.Time, venue string) (*models.GigListing, error) {
	query := gigListingSelect + ` WHERE g.gig_date = $1 AND g.venue = $2 LIMIT 1`

	var gig models.GigListing
	err := r.db.GetContext(ctx, &gig, query, date, venue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No clash
		}
		return nil, err
	}

	return &gig, nil
}

func (r *PostgresRepository) ListGigYears(ctx context.Context) ([]int, error) {
	query := `SELECT DISTINCT EXTRACT(YEAR FROM gig_date)::int AS year FROM gigs ORDER BY year DESC`

	var years []int
	err := r.db.SelectContext(ctx, &years, query)
	if err != nil {
		return nil, err
	}

	return years, nil
}

// Balance queries
func (r *PostgresRepository) GigBalance(ctx context.Context, gigID string) (decimal.Decimal, error) {
	query := `
		SELECT g.price - COALESCE((SELECT SUM(p.amount_eur) FROM payments p WHERE p.gig_id = g.id), 0)
		FROM gigs g WHERE g.id = $1
	`

	var balance decimal.Decimal
	err := r.db.GetContext(ctx, &balance, query, gigID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrGigNotFound
		}
		return decimal.Zero, err
	}

	return balance, nil
}

func (r *PostgresRepository) IsFullyPaid(ctx context.Context, gigID string) (bool, error) {
	balance, err := r.GigBalance(ctx, gigID)
	if err != nil {
		return false, err
	}

	return money.IsSettled(balance), nil
}

// ListUnpaidGigs returns gigs dated on or before asOf that still carry an
// open balance, oldest first. This is the exact input order the settlement
// waterfall requires.
func (r *PostgresRepository) ListUnpaidGigs(ctx context.Context, asOf time.Time) ([]models.UnpaidGig, error) {
	query := `
		SELECT g.id, g.gig_date, g.venue, g.city, g.band_id, b.name AS band_name,
			g.price,
			COALESCE(SUM(p.amount_eur), 0) AS total_paid,
			g.price - COALESCE(SUM(p.amount_eur), 0) AS outstanding
		FROM gigs g
		JOIN bands b ON g.band_id = b.id
		LEFT JOIN payments p ON p.gig_id = g.id
		WHERE g.gig_date <= $1
		GROUP BY g.id, b.name
		HAVING g.price - COALESCE(SUM(p.amount_eur), 0) > 0.01
		ORDER BY g.gig_date ASC
	`

	var gigs []models.UnpaidGig
	err := r.db.SelectContext(ctx, &gigs, query, asOf)
	if err != nil {
		return nil, err
	}

	return gigs, nil
}

// Settlement operations

// SettleGigInFull pays off a gig's entire remaining balance in one
// transaction. The gig row is locked for the duration of the
// read-compute-write sequence so two concurrent calls cannot both observe
// the same outstanding balance and double-pay.
func (r *PostgresRepository) SettleGigInFull(ctx context.Context, gigID string) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Lock the gig row. Concurrent settlements of the same gig serialize
	// here; settlements of different gigs proceed in parallel.
	var gig struct {
		Price    decimal.Decimal `db:"price"`
		Currency string          `db:"currency"`
	}
	err = tx.GetContext(ctx, &gig,
		`SELECT price, currency FROM gigs WHERE id = $1 FOR UPDATE`, gigID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrGigNotFound
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	var totalPaid decimal.Decimal
	err = tx.GetContext(ctx, &totalPaid,
		`SELECT COALESCE(SUM(amount_eur), 0) FROM payments WHERE gig_id = $1`, gigID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	outstanding := money.Round(gig.Price.Sub(totalPaid))
	if money.IsSettled(outstanding) {
		err = ErrAlreadySettled
		return nil, err
	}

	cur, err := money.ParseCurrency(gig.Currency)
	if err != nil {
		return nil, err
	}

	var rate decimal.Decimal
	err = tx.GetContext(ctx, &rate,
		`SELECT eur_to_rsd FROM exchange_rate WHERE id = 1`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	// The payment is the full remaining balance; there is no partial
	// single-gig path. For non-EUR gigs the original-currency amount is
	// derived from the current rate.
	amountOriginal, err := money.FromEUR(outstanding, cur, rate)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:             uuid.New().String(),
		GigID:          gigID,
		AmountEUR:      outstanding,
		AmountOriginal: amountOriginal,
		Currency:       string(cur),
		PaymentDate:    time.Now().UTC(),
	}
	if cur != money.EUR {
		payment.ExchangeRate = decimal.NewNullDecimal(rate)
	}

	err = insertPaymentTx(ctx, tx, payment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	return payment, nil
}

// InsertBulkPayments persists a confirmed allocation as one payment row per
// entry, all tagged with the shared bulk group, inside a single transaction.
// Entries with a missing gig id or a non-positive amount are skipped without
// failing the batch; any insert failure rolls the whole batch back.
func (r *PostgresRepository) InsertBulkPayments(
	ctx context.Context,
	bulkGroup string,
	entries []BulkEntry,
	currency money.Currency,
	rate decimal.Decimal,
) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	paymentDate := time.Now().UTC()
	count := 0

	for _, entry := range entries {
		if entry.GigID == "" || entry.AmountEUR.LessThanOrEqual(decimal.Zero) {
			continue
		}

		amountEUR := money.Round(entry.AmountEUR)

		var amountOriginal decimal.Decimal
		amountOriginal, err = money.FromEUR(amountEUR, currency, rate)
		if err != nil {
			return 0, err
		}

		payment := &models.Payment{
			ID:             uuid.New().String(),
			GigID:          entry.GigID,
			BulkGroup:      sql.NullString{String: bulkGroup, Valid: true},
			AmountEUR:      amountEUR,
			AmountOriginal: amountOriginal,
			Currency:       string(currency),
			PaymentDate:    paymentDate,
		}
		if currency != money.EUR {
			payment.ExchangeRate = decimal.NewNullDecimal(rate)
		}

		err = insertPaymentTx(ctx, tx, payment)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
		}

		count++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	return count, nil
}

// insertPaymentTx appends one row to the payments ledger within an existing
// transaction
func insertPaymentTx(ctx context.Context, tx *sqlx.Tx, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, gig_id, bulk_group, amount_eur, amount_original,
			currency, exchange_rate, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.ExecContext(ctx, query,
		payment.ID, payment.GigID, payment.BulkGroup, payment.AmountEUR,
		payment.AmountOriginal, payment.Currency, payment.ExchangeRate,
		payment.PaymentDate)

	return err
}

func (r *PostgresRepository) GetPaymentsByGig(ctx context.Context, gigID string) ([]models.Payment, error) {
	query := `SELECT * FROM payments WHERE gig_id = $1 ORDER BY payment_date ASC`

	var payments []models.Payment
	err := r.db.SelectContext(ctx, &payments, query, gigID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

// Exchange rate methods
func (r *PostgresRepository) GetExchangeRate(ctx context.Context) (*models.ExchangeRate, error) {
	query := `SELECT * FROM exchange_rate WHERE id = 1`

	var rate models.ExchangeRate
	err := r.db.GetContext(ctx, &rate, query)
	if err != nil {
		return nil, err
	}

	return &rate, nil
}

func (r *PostgresRepository) UpdateExchangeRate(ctx context.Context, eurToRsd, rsdToEur decimal.Decimal) error {
	query := `UPDATE exchange_rate SET eur_to_rsd = $1, rsd_to_eur = $2, updated_at = $3 WHERE id = 1`

	_, err := r.db.ExecContext(ctx, query, eurToRsd, rsdToEur, time.Now().UTC())
	return err
}
