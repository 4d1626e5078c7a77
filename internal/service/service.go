package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tekumsceh/gigstr/internal/models"
	"github.com/tekumsceh/gigstr/internal/money"
	"github.com/tekumsceh/gigstr/internal/repository"
	"github.com/tekumsceh/gigstr/internal/waterfall"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for requests rejected before anything was attempted
// against storage.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const gigDateLayout = "2006-01-02"

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// Bands
	CreateBand(ctx context.Context, userID string, req models.CreateBandRequest) (*models.Band, error)
	GetMyBands(ctx context.Context, userID string) ([]models.Band, error)

	// Lookups
	ListStatuses(ctx context.Context) ([]models.Status, error)
	GetExchangeRate(ctx context.Context) (*models.ExchangeRate, error)

	// Gigs
	CreateGig(ctx context.Context, ownerID string, req models.GigRequest) (*models.Gig, error)
	UpdateGig(ctx context.Context, gigID string, req models.GigRequest) error
	DeleteGig(ctx context.Context, gigID string) error
	GetGig(ctx context.Context, gigID string) (*models.GigListing, error)
	ListGigs(ctx context.Context, filter models.GigListFilter) ([]models.GigListing, error)
	CheckConflict(ctx context.Context, date, venue string) (*models.ConflictResponse, error)

	// Settlement
	GetSettlementPackage(ctx context.Context) (*models.SettlementPackageResponse, error)
	PreviewBulkSettlement(ctx context.Context, req models.BulkPreviewRequest) (*models.BulkPreviewResponse, error)
	SettleSingle(ctx context.Context, gigID string) (*models.SingleSettleResponse, error)
	SettleBulk(ctx context.Context, req models.BulkSettleRequest) (*models.BulkSettleResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	adminEmail    string
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret, adminEmail string) Service {
	return &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		adminEmail:    adminEmail,
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	role := models.RoleMusician
	if s.adminEmail != "" && req.Email == s.adminEmail {
		role = models.RoleAdmin
	}

	// Create the user
	user := &models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
		Role:     role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	// Every new account gets a solo band so gigs can be booked right away
	soloBand := &models.Band{
		Name:      fmt.Sprintf("%s (Solo)", user.Name),
		IsSolo:    true,
		CreatedBy: user.ID,
	}
	if err := s.repo.CreateBand(ctx, soloBand); err != nil {
		return nil, fmt.Errorf("error creating solo band: %w", err)
	}

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Generate JWT token
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Role:      user.Role,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

func (s *DefaultService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// Band operations
func (s *DefaultService) CreateBand(ctx context.Context, userID string, req models.CreateBandRequest) (*models.Band, error) {
	band := &models.Band{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Color:     req.Color,
		CreatedBy: userID,
	}

	if err := s.repo.CreateBand(ctx, band); err != nil {
		return nil, fmt.Errorf("error creating band: %w", err)
	}

	return band, nil
}

func (s *DefaultService) GetMyBands(ctx context.Context, userID string) ([]models.Band, error) {
	bands, err := s.repo.GetUserBands(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user bands: %w", err)
	}

	return bands, nil
}

// Lookups
func (s *DefaultService) ListStatuses(ctx context.Context) ([]models.Status, error) {
	return s.repo.ListStatuses(ctx)
}

func (s *DefaultService) GetExchangeRate(ctx context.Context) (*models.ExchangeRate, error) {
	rate, err := s.repo.GetExchangeRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting exchange rate: %w", err)
	}

	return rate, nil
}

// Gig operations
func (s *DefaultService) CreateGig(ctx context.Context, ownerID string, req models.GigRequest) (*models.Gig, error) {
	gig, err := gigFromRequest(req)
	if err != nil {
		return nil, err
	}
	gig.ID = uuid.New().String()
	gig.OwnerID = ownerID

	if err := s.repo.CreateGig(ctx, gig); err != nil {
		return nil, fmt.Errorf("error creating gig: %w", err)
	}

	return gig, nil
}

func (s *DefaultService) UpdateGig(ctx context.Context, gigID string, req models.GigRequest) error {
	gig, err := gigFromRequest(req)
	if err != nil {
		return err
	}
	gig.ID = gigID

	if err := s.repo.UpdateGig(ctx, gig); err != nil {
		if errors.Is(err, repository.ErrGigNotFound) {
			return err
		}
		return fmt.Errorf("error updating gig: %w", err)
	}

	return nil
}

func (s *DefaultService) DeleteGig(ctx context.Context, gigID string) error {
	if err := s.repo.DeleteGig(ctx, gigID); err != nil {
		if errors.Is(err, repository.ErrGigNotFound) {
			return err
		}
		return fmt.Errorf("error deleting gig: %w", err)
	}

	return nil
}

func (s *DefaultService) GetGig(ctx context.Context, gigID string) (*models.GigListing, error) {
	gig, err := s.repo.GetGig(ctx, gigID)
	if err != nil {
		return nil, fmt.Errorf("error getting gig: %w", err)
	}

	return gig, nil
}

func (s *DefaultService) ListGigs(ctx context.Context, filter models.GigListFilter) ([]models.GigListing, error) {
	gigs, err := s.repo.ListGigs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing gigs: %w", err)
	}

	return gigs, nil
}

func (s *DefaultService) CheckConflict(ctx context.Context, date, venue string) (*models.ConflictResponse, error) {
	parsed, err := time.Parse(gigDateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, date)
	}
	if venue == "" {
		return nil, fmt.Errorf("%w: venue is required", ErrInvalidInput)
	}

	gig, err := s.repo.FindConflict(ctx, parsed, venue)
	if err != nil {
		return nil, fmt.Errorf("error checking conflict: %w", err)
	}

	return &models.ConflictResponse{Conflict: gig != nil, Gig: gig}, nil
}

// Settlement operations

// GetSettlementPackage bundles everything the bulk-pay flow needs in one
// round trip: unpaid gigs up to today (oldest first), the current rate and
// the filter options.
func (s *DefaultService) GetSettlementPackage(ctx context.Context) (*models.SettlementPackageResponse, error) {
	gigs, err := s.repo.ListUnpaidGigs(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("error listing unpaid gigs: %w", err)
	}

	rate, err := s.repo.GetExchangeRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting exchange rate: %w", err)
	}

	years, err := s.repo.ListGigYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing gig years: %w", err)
	}

	bands, err := s.repo.ListBands(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing bands: %w", err)
	}

	return &models.SettlementPackageResponse{
		Status: "success",
		Gigs:   gigs,
		Rate:   *rate,
		Years:  years,
		Bands:  bands,
	}, nil
}

// PreviewBulkSettlement converts the entered amount to EUR and runs the
// waterfall over the current unpaid gigs without writing anything. Safe to
// call any number of times before confirming.
func (s *DefaultService) PreviewBulkSettlement(ctx context.Context, req models.BulkPreviewRequest) (*models.BulkPreviewResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	cur, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	rate, err := s.repo.GetExchangeRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting exchange rate: %w", err)
	}

	pool, err := money.ConvertToEUR(req.Amount, cur, rate.EurToRsd)
	if err != nil {
		return nil, err
	}

	unpaid, err := s.repo.ListUnpaidGigs(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("error listing unpaid gigs: %w", err)
	}

	balances := make([]waterfall.GigBalance, 0, len(unpaid))
	for _, gig := range unpaid {
		balances = append(balances, waterfall.GigBalance{
			GigID:       gig.ID,
			Venue:       gig.Venue,
			Date:        gig.GigDate,
			Outstanding: gig.Outstanding,
		})
	}

	result, err := waterfall.Simulate(balances, pool)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	return &models.BulkPreviewResponse{
		Status:  "success",
		PoolEUR: pool,
		Result:  result,
	}, nil
}

// SettleSingle pays off a gig's full remaining balance
func (s *DefaultService) SettleSingle(ctx context.Context, gigID string) (*models.SingleSettleResponse, error) {
	payment, err := s.repo.SettleGigInFull(ctx, gigID)
	if err != nil {
		return nil, err
	}

	return &models.SingleSettleResponse{
		Status:    "success",
		AmountEUR: payment.AmountEUR,
		Message:   fmt.Sprintf("Payment of %s EUR for gig %s processed.", payment.AmountEUR.StringFixed(2), gigID),
	}, nil
}

// SettleBulk applies a confirmed allocation as payment rows, all tagged with
// one shared bulk group so the run can be reconstructed later
func (s *DefaultService) SettleBulk(ctx context.Context, req models.BulkSettleRequest) (*models.BulkSettleResponse, error) {
	if len(req.Payments) == 0 {
		return nil, fmt.Errorf("%w: payments array is empty", ErrInvalidInput)
	}

	cur, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	if cur != money.EUR && cur != money.RSD {
		return nil, fmt.Errorf("%w: bulk settlement only supports EUR and RSD", money.ErrUnsupportedCurrency)
	}
	if cur == money.RSD && req.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: exchange rate is required for RSD payments", ErrInvalidInput)
	}

	entries := make([]repository.BulkEntry, 0, len(req.Payments))
	for _, p := range req.Payments {
		entries = append(entries, repository.BulkEntry{
			GigID:     p.GigID,
			AmountEUR: p.AmountEUR,
		})
	}

	bulkGroup := "bulk_" + uuid.New().String()

	count, err := s.repo.InsertBulkPayments(ctx, bulkGroup, entries, cur, req.ExchangeRate)
	if err != nil {
		return nil, err
	}

	return &models.BulkSettleResponse{
		Status:    "success",
		BulkGroup: bulkGroup,
		Count:     count,
	}, nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub":  user.ID, // subject
		"role": user.Role,
		"exp":  expirationTime.Unix(),
		"iat":  time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func gigFromRequest(req models.GigRequest) (*models.Gig, error) {
	gigDate, err := time.Parse(gigDateLayout, req.GigDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid gig date %q", ErrInvalidInput, req.GigDate)
	}

	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	cur, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	return &models.Gig{
		GigDate:     gigDate,
		BandID:      req.BandID,
		City:        req.City,
		Venue:       req.Venue,
		Country:     nullString(req.Country),
		Price:       money.Round(req.Price),
		Currency:    string(cur),
		StartTime:   nullString(req.StartTime),
		LoadIn:      nullString(req.LoadIn),
		Soundcheck:  nullString(req.Soundcheck),
		Doors:       nullString(req.Doors),
		Curfew:      nullString(req.Curfew),
		Category:    nullString(req.Category),
		Description: nullString(req.Description),
		StatusID:    req.StatusID,
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
