package ratesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tekumsceh/gigstr/internal/repository"
	"github.com/tekumsceh/gigstr/internal/utils"
)

// Syncer periodically refreshes the singleton EUR→RSD exchange rate from the
// National Bank of Serbia middle-rate feed. The settlement core only reads
// the stored rate; a failed sync leaves the previous value in place.
type Syncer struct {
	repo   repository.Repository
	url    string
	client *http.Client
	logger *utils.Logger
}

// rateFeed is the shape of the middle-rate API response
type rateFeed struct {
	ExchangeMiddle decimal.Decimal `json:"exchange_middle"`
}

// NewSyncer creates a rate syncer for the given feed URL
func NewSyncer(repo repository.Repository, url string, logger *utils.Logger) *Syncer {
	return &Syncer{
		repo:   repo,
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Start runs the sync loop in a background goroutine: one sync at startup,
// then one per interval, until ctx is cancelled.
func (s *Syncer) Start(ctx context.Context, interval time.Duration) {
	go func() {
		s.logger.Info("Exchange rate sync started (every %s)", interval)

		if err := s.SyncOnce(ctx); err != nil {
			s.logger.Error("Exchange rate sync failed: %v", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Exchange rate sync stopped")
				return
			case <-ticker.C:
				if err := s.SyncOnce(ctx); err != nil {
					s.logger.Error("Exchange rate sync failed: %v", err)
				}
			}
		}
	}()
}

// SyncOnce fetches the current EUR→RSD middle rate and stores it together
// with its reciprocal.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("building rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var feed rateFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return fmt.Errorf("decoding rate response: %w", err)
	}

	eurToRsd := feed.ExchangeMiddle
	if eurToRsd.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("invalid rate data: %s", eurToRsd)
	}

	rsdToEur := decimal.NewFromInt(1).DivRound(eurToRsd, 8)

	if err := s.repo.UpdateExchangeRate(ctx, eurToRsd, rsdToEur); err != nil {
		return fmt.Errorf("storing rate: %w", err)
	}

	s.logger.Info("Exchange rate updated: 1 EUR = %s RSD", eurToRsd.StringFixed(4))
	return nil
}
