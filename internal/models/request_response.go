package models

import (
	"github.com/shopspring/decimal"
	"github.com/tekumsceh/gigstr/internal/waterfall"
)

// Request models
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateBandRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

type GigRequest struct {
	GigDate     string          `json:"gigDate" binding:"required"`
	BandID      string          `json:"bandId" binding:"required"`
	City        string          `json:"city" binding:"required"`
	Venue       string          `json:"venue" binding:"required"`
	Country     string          `json:"country"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" binding:"required"`
	StartTime   string          `json:"startTime"`
	LoadIn      string          `json:"loadIn"`
	Soundcheck  string          `json:"soundcheck"`
	Doors       string          `json:"doors"`
	Curfew      string          `json:"curfew"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	StatusID    string          `json:"statusId" binding:"required"`
}

// GigListFilter captures the supported listing filters. Zero values mean
// "no filter".
type GigListFilter struct {
	Timeline string // "upcoming" or "past"
	StatusID string
	Year     int
	Paid     string // "paid" or "unpaid"
}

// BulkPreviewRequest asks for a waterfall simulation of a lump payment.
// Amount is in the given currency; the server converts to EUR before
// allocating.
type BulkPreviewRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
}

// BulkPaymentEntry is one confirmed allocation row to persist.
type BulkPaymentEntry struct {
	GigID     string          `json:"gigId"`
	AmountEUR decimal.Decimal `json:"amountEur"`
}

// BulkSettleRequest applies a confirmed allocation as payment rows.
type BulkSettleRequest struct {
	Payments     []BulkPaymentEntry `json:"payments" binding:"required"`
	Currency     string             `json:"currency" binding:"required"`
	ExchangeRate decimal.Decimal    `json:"exchangeRate"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type BandResponse struct {
	Status string `json:"status"`
	Band   *Band  `json:"band,omitempty"`
}

type GigResponse struct {
	Status string `json:"status"`
	GigID  string `json:"gigId,omitempty"`
}

type ConflictResponse struct {
	Conflict bool        `json:"conflict"`
	Gig      *GigListing `json:"gig,omitempty"`
}

// SettlementPackageResponse bundles everything the bulk-pay screen needs:
// unpaid gigs oldest first, the current rate, and the filter options.
type SettlementPackageResponse struct {
	Status string       `json:"status"`
	Gigs   []UnpaidGig  `json:"gigs"`
	Rate   ExchangeRate `json:"rate"`
	Years  []int        `json:"years"`
	Bands  []Band       `json:"bands"`
}

type BulkPreviewResponse struct {
	Status  string           `json:"status"`
	PoolEUR decimal.Decimal  `json:"poolEur"`
	Result  waterfall.Result `json:"result"`
}

type SingleSettleResponse struct {
	Status    string          `json:"status"`
	AmountEUR decimal.Decimal `json:"amountEur"`
	Message   string          `json:"message"`
}

type BulkSettleResponse struct {
	Status    string `json:"status"`
	BulkGroup string `json:"bulkGroup"`
	Count     int    `json:"count"`
}

type RateResponse struct {
	Status string       `json:"status"`
	Rate   ExchangeRate `json:"rate"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
