package api_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tekumsceh/gigstr/internal/api/testutils"
)

// Concurrent settle attempts on the same gig must produce exactly one
// payment row. The row lock taken inside the settlement transaction
// serializes the writers; every later attempt sees a zero balance.
func TestConcurrentSingleSettle(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	gigID := testutils.CreateTestGig(t, testCtx, "2025-04-01", 900, "EUR")

	const attempts = 8

	var wg sync.WaitGroup
	codes := make([]int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := testutils.PerformRequest(
				testCtx.Router,
				http.MethodPost,
				"/api/settlements/single/"+gigID,
				nil,
				testutils.AuthHeaders(testCtx.AdminJWT),
			)
			codes[idx] = w.Code
		}(i)
	}

	wg.Wait()

	succeeded := 0
	rejected := 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			succeeded++
		case http.StatusBadRequest:
			rejected++
		default:
			t.Errorf("unexpected status code %d", code)
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one settle attempt should win")
	assert.Equal(t, attempts-1, rejected)
	assert.Equal(t, 1, testutils.CountPayments(t, testCtx, gigID))
}
