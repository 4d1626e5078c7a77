package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tekumsceh/gigstr/internal/api/testutils"
	"github.com/tekumsceh/gigstr/internal/models"
)

func TestSignup(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Successful signup
	signupReq := models.SignUpRequest{
		Email:    "newuser@example.com",
		Password: "Password123",
		Name:     "New User",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/signup",
		signupReq,
		nil,
	)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.AuthResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleMusician, response.Role)

	// Test case 2: Duplicate email
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/signup",
		signupReq,
		nil,
	)

	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Invalid request (missing required fields)
	invalidReq := models.SignUpRequest{
		Email: "invalid@example.com",
		// Missing password and name
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/signup",
		invalidReq,
		nil,
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupCreatesSoloBand(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	signupReq := models.SignUpRequest{
		Email:    "solo@example.com",
		Password: "Password123",
		Name:     "Solo Artist",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/signup",
		signupReq,
		nil,
	)
	assert.Equal(t, http.StatusCreated, w.Code)

	loginReq := models.LoginRequest{Email: "solo@example.com", Password: "Password123"}
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var auth models.AuthResponse
	err := json.Unmarshal(w.Body.Bytes(), &auth)
	assert.NoError(t, err)
	assert.NotEmpty(t, auth.Token)

	// The new account should already be a member of its auto-created solo band
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/my-bands",
		nil,
		testutils.AuthHeaders(auth.Token),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var bands []models.Band
	err = json.Unmarshal(w.Body.Bytes(), &bands)
	assert.NoError(t, err)
	assert.Len(t, bands, 1)
	assert.True(t, bands[0].IsSolo)
	assert.Equal(t, "Solo Artist (Solo)", bands[0].Name)
}

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Successful login
	loginReq := models.LoginRequest{
		Email:    "admin@example.com",
		Password: "testpassword",
	}

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		loginReq,
		nil,
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.AuthResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, models.RoleAdmin, response.Role)

	// Test case 2: Invalid credentials
	invalidLoginReq := models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrongpassword",
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		invalidLoginReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: User not found
	nonExistentUserReq := models.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: "testpassword",
	}

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/login",
		nonExistentUserReq,
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
