package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tekumsceh/gigstr/internal/api/testutils"
	"github.com/tekumsceh/gigstr/internal/models"
)

func TestCreateGig(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Successful gig creation
	gigReq := models.GigRequest{
		GigDate:  "2025-06-21",
		BandID:   testCtx.TestBandID,
		City:     "Novi Sad",
		Venue:    "Exit Fortress Stage",
		Price:    decimal.NewFromInt(1200),
		Currency: "EUR",
		StatusID: testCtx.TestStatusID,
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/gigs",
		gigReq,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.GigResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response.GigID)

	// Test case 2: Invalid request (missing required fields)
	invalidReq := models.GigRequest{
		GigDate: "2025-06-21",
		// Missing band, city, venue, currency, status
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/gigs",
		invalidReq,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 3: Unsupported pricing currency
	badCurrencyReq := gigReq
	badCurrencyReq.Currency = "CHF"

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/gigs",
		badCurrencyReq,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 4: Musicians cannot create gigs
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/gigs",
		gigReq,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)

	assert.Equal(t, http.StatusForbidden, w.Code)

	// Test case 5: Unauthorized request (no token)
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/gigs",
		gigReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetGig(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	gigID := testutils.CreateTestGig(t, testCtx, "2025-04-12", 800, "EUR")

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/gigs/"+gigID,
		nil,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var gig models.GigListing
	err := json.Unmarshal(w.Body.Bytes(), &gig)
	assert.NoError(t, err)
	assert.Equal(t, gigID, gig.ID)
	assert.Equal(t, "Test Band", gig.BandName)
	assert.True(t, gig.PaidAmount.IsZero(), "new gig should have no payments")

	// Unknown id
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/gigs/non-existent-id",
		nil,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListGigsFilters(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	paidID := testutils.CreateTestGig(t, testCtx, "2024-03-10", 300, "EUR")
	unpaidID := testutils.CreateTestGig(t, testCtx, "2024-08-22", 500, "EUR")
	testutils.CreateTestGig(t, testCtx, "2023-11-05", 450, "EUR")

	// Settle the first gig so the paid/unpaid filters have something to split
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/settlements/single/"+paidID,
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// Year filter
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/gigs?year=2024",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var gigs []models.GigListing
	err := json.Unmarshal(w.Body.Bytes(), &gigs)
	assert.NoError(t, err)
	assert.Len(t, gigs, 2)

	// Listing is ordered by gig date ascending
	assert.Equal(t, paidID, gigs[0].ID)
	assert.Equal(t, unpaidID, gigs[1].ID)

	// Unpaid filter
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/gigs?year=2024&paid=unpaid",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	err = json.Unmarshal(w.Body.Bytes(), &gigs)
	assert.NoError(t, err)
	assert.Len(t, gigs, 1)
	assert.Equal(t, unpaidID, gigs[0].ID)

	// Paid filter
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/gigs?year=2024&paid=paid",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	err = json.Unmarshal(w.Body.Bytes(), &gigs)
	assert.NoError(t, err)
	assert.Len(t, gigs, 1)
	assert.Equal(t, paidID, gigs[0].ID)
}

func TestUpdateAndDeleteGig(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	gigID := testutils.CreateTestGig(t, testCtx, "2025-09-01", 600, "EUR")

	updateReq := models.GigRequest{
		GigDate:  "2025-09-02",
		BandID:   testCtx.TestBandID,
		City:     "Belgrade",
		Venue:    "Dom Omladine",
		Price:    decimal.NewFromInt(750),
		Currency: "RSD",
		StatusID: testCtx.TestStatusID,
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPut,
		"/api/gigs/"+gigID,
		updateReq,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// The update is visible on the detail view
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/gigs/"+gigID,
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var gig models.GigListing
	err := json.Unmarshal(w.Body.Bytes(), &gig)
	assert.NoError(t, err)
	assert.Equal(t, "Dom Omladine", gig.Venue)
	assert.Equal(t, "RSD", gig.Currency)
	assert.True(t, gig.Price.Equal(decimal.NewFromInt(750)))

	// Updating a non-existent gig is a 404
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPut,
		"/api/gigs/non-existent-id",
		updateReq,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Delete the gig
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		"/api/gigs/"+gigID,
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// Deleting again is a 404
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodDelete,
		"/api/gigs/"+gigID,
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckConflict(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	gigID := testutils.CreateTestGig(t, testCtx, "2025-05-17", 400, "EUR")

	// Learn the generated venue name from the detail view
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/gigs/"+gigID,
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var gig models.GigListing
	err := json.Unmarshal(w.Body.Bytes(), &gig)
	assert.NoError(t, err)

	// Same date and venue clashes
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		fmt.Sprintf("/api/gigs/check-conflict?date=2025-05-17&venue=%s", gig.Venue),
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var conflict models.ConflictResponse
	err = json.Unmarshal(w.Body.Bytes(), &conflict)
	assert.NoError(t, err)
	assert.True(t, conflict.Conflict)
	assert.NotNil(t, conflict.Gig)
	assert.Equal(t, gigID, conflict.Gig.ID)

	// Different date is free
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		fmt.Sprintf("/api/gigs/check-conflict?date=2025-05-18&venue=%s", gig.Venue),
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	err = json.Unmarshal(w.Body.Bytes(), &conflict)
	assert.NoError(t, err)
	assert.False(t, conflict.Conflict)
	assert.Nil(t, conflict.Gig)
}
