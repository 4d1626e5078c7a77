package ratesync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tekumsceh/gigstr/internal/repository"
	"github.com/tekumsceh/gigstr/internal/utils"
)

// rateRecorder captures the rate pair the syncer stores
type rateRecorder struct {
	repository.Repository
	eurToRsd decimal.Decimal
	rsdToEur decimal.Decimal
	calls    int
}

func (r *rateRecorder) UpdateExchangeRate(ctx context.Context, eurToRsd, rsdToEur decimal.Decimal) error {
	r.eurToRsd = eurToRsd
	r.rsdToEur = rsdToEur
	r.calls++
	return nil
}

func TestSyncOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"exchange_middle": 117.1743}`))
	}))
	defer srv.Close()

	repo := &rateRecorder{}
	syncer := NewSyncer(repo, srv.URL, utils.NewLogger())

	err := syncer.SyncOnce(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, "117.1743", repo.eurToRsd.StringFixed(4))

	// Reciprocal is stored alongside, rounded to 8 decimals
	assert.Equal(t, "0.00853429", repo.rsdToEur.StringFixed(8))
}

func TestSyncOnceRejectsBadFeed(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-200 status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
		"zero rate": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"exchange_middle": 0}`))
		},
		"negative rate": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"exchange_middle": -5}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			repo := &rateRecorder{}
			syncer := NewSyncer(repo, srv.URL, utils.NewLogger())

			err := syncer.SyncOnce(context.Background())
			assert.Error(t, err)
			assert.Equal(t, 0, repo.calls, "a failed sync must not touch the stored rate")
		})
	}
}
