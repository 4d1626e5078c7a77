package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tekumsceh/gigstr/internal/api/testutils"
	"github.com/tekumsceh/gigstr/internal/models"
)

func TestCreateBand(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Successful band creation
	bandReq := models.CreateBandRequest{
		Name:  "The Night Shift",
		Color: "#AA3366",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/bands",
		bandReq,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.BandResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotNil(t, response.Band)
	assert.Equal(t, "The Night Shift", response.Band.Name)
	assert.False(t, response.Band.IsSolo)

	// Test case 2: Invalid request (missing name)
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/bands",
		models.CreateBandRequest{Color: "#000000"},
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 3: Unauthorized request
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/bands",
		bandReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMyBands(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// The musician starts with no bands
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/my-bands",
		nil,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var bands []models.Band
	err := json.Unmarshal(w.Body.Bytes(), &bands)
	assert.NoError(t, err)
	assert.Empty(t, bands)

	// Creating a band makes the creator a member
	bandReq := models.CreateBandRequest{Name: "Brass Section", Color: "#FFCC00"}
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/bands",
		bandReq,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/my-bands",
		nil,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	err = json.Unmarshal(w.Body.Bytes(), &bands)
	assert.NoError(t, err)
	assert.Len(t, bands, 1)
	assert.Equal(t, "Brass Section", bands[0].Name)
}

func TestListStatuses(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/statuses",
		nil,
		testutils.AuthHeaders(testCtx.MusicianJWT),
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var statuses []models.Status
	err := json.Unmarshal(w.Body.Bytes(), &statuses)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(statuses), 3)

	names := map[string]bool{}
	for _, s := range statuses {
		names[s.Name] = true
	}
	assert.True(t, names["Confirmed"])
	assert.True(t, names["Pencilled"])
	assert.True(t, names["Cancelled"])
}
