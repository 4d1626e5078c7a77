package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tekumsceh/gigstr/internal/api"
	"github.com/tekumsceh/gigstr/internal/config"
	"github.com/tekumsceh/gigstr/internal/models"
	"github.com/tekumsceh/gigstr/internal/repository"
	"github.com/tekumsceh/gigstr/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router       *gin.Engine
	Repository   repository.Repository
	Service      service.Service
	JWTSecret    []byte
	DB           *sqlx.DB
	AdminUserID  string
	AdminJWT     string
	MusicianID   string
	MusicianJWT  string
	TestBandID   string
	TestStatusID string
}

// SetupTestContext creates a new test context with initialized dependencies
func SetupTestContext(t *testing.T) *TestContext {
	// Load configuration from environment
	cfg := config.LoadConfig()

	// Override with test-specific config
	if cfg.Database.DBName == "gigstr" && cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	} else if cfg.Database.TestDBName == "" {
		// Fallback to hardcoded test DB if not in environment
		cfg.Database.DBName = "gigstr_test"
	}

	// Use a test JWT secret
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	// Set up database
	db, err := config.SetupDatabase(cfg)
	assert.NoError(t, err, "Failed to set up test database")

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, cfg.Auth.AdminEmail)

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	testCtx := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		JWTSecret:  []byte(cfg.Auth.JWTSecret),
		DB:         db,
	}

	cleanupTestDatabase(t, repo)

	// Create one admin and one musician account
	testCtx.AdminUserID, testCtx.AdminJWT = createTestUser(
		t, repo, cfg.Auth.JWTSecret, "admin@example.com", models.RoleAdmin)
	testCtx.MusicianID, testCtx.MusicianJWT = createTestUser(
		t, repo, cfg.Auth.JWTSecret, "musician@example.com", models.RoleMusician)

	// One band to hang gigs off, plus a known status id
	testCtx.TestBandID = createTestBand(t, repo, testCtx.AdminUserID)
	testCtx.TestStatusID = "confirmed"

	return testCtx
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *TestContext) {
	// Clean up database
	if t.DB != nil {
		cleanupTestDatabase(nil, t.Repository)
		t.DB.Close()
	}
}

// cleanupTestDatabase removes any existing test users and data
func cleanupTestDatabase(t *testing.T, repo repository.Repository) {
	// Execute cleanup SQL directly through the DB connection, children first
	if pgRepo, ok := repo.(*repository.PostgresRepository); ok {
		db := pgRepo.GetDB()

		for _, table := range []string{"payments", "gigs", "band_members", "bands", "users"} {
			_, err := db.Exec("DELETE FROM " + table)
			if t != nil && err != nil {
				t.Logf("Warning: Failed to clean %s: %v", table, err)
			}
		}
	}
}

// Helper functions
func createTestUser(t *testing.T, repo repository.Repository, jwtSecret, email, role string) (string, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     "Test User",
		Password: string(hashedPassword),
		Role:     role,
	}

	err := repo.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	// Generate JWT token with the provided secret key
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(jwtSecret))
	assert.NoError(t, err, "Failed to generate JWT token")

	return user.ID, tokenString
}

func createTestBand(t *testing.T, repo repository.Repository, ownerID string) string {
	band := &models.Band{
		ID:        uuid.New().String(),
		Name:      "Test Band",
		Color:     "#336699",
		CreatedBy: ownerID,
	}

	err := repo.CreateBand(context.Background(), band)
	assert.NoError(t, err, "Failed to create test band")

	return band.ID
}

// CreateTestGig inserts a gig directly through the repository and returns
// its id
func CreateTestGig(t *testing.T, testCtx *TestContext, date string, price float64, currency string) string {
	gigDate, err := time.Parse("2006-01-02", date)
	assert.NoError(t, err, "Invalid gig date in test")

	gigID := uuid.New().String()
	gig := &models.Gig{
		ID:       gigID,
		GigDate:  gigDate,
		BandID:   testCtx.TestBandID,
		City:     "Belgrade",
		Venue:    fmt.Sprintf("Venue %s", gigID[:8]),
		Price:    decimal.NewFromFloat(price),
		Currency: currency,
		StatusID: testCtx.TestStatusID,
		OwnerID:  testCtx.AdminUserID,
	}

	err = testCtx.Repository.CreateGig(context.Background(), gig)
	assert.NoError(t, err, "Failed to create test gig")

	return gig.ID
}

// CountPayments returns the number of payment rows for a gig (or all rows
// when gigID is empty)
func CountPayments(t *testing.T, testCtx *TestContext, gigID string) int {
	pgRepo, ok := testCtx.Repository.(*repository.PostgresRepository)
	assert.True(t, ok)

	var count int
	var err error
	if gigID == "" {
		err = pgRepo.GetDB().Get(&count, "SELECT COUNT(*) FROM payments")
	} else {
		err = pgRepo.GetDB().Get(&count, "SELECT COUNT(*) FROM payments WHERE gig_id = $1", gigID)
	}
	assert.NoError(t, err)

	return count
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
