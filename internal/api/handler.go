package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tekumsceh/gigstr/internal/models"
	"github.com/tekumsceh/gigstr/internal/money"
	"github.com/tekumsceh/gigstr/internal/repository"
	"github.com/tekumsceh/gigstr/internal/service"
)

// Handler holds the API handlers
type Handler struct {
	svc service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.POST("/api/auth/signup", h.SignUp)
	router.POST("/api/auth/login", h.Login)

	auth := router.Group("/api", AuthMiddleware())
	{
		auth.GET("/rates", h.GetRates)
		auth.GET("/statuses", h.ListStatuses)
		auth.POST("/bands", h.CreateBand)
		auth.GET("/my-bands", h.GetMyBands)
		auth.GET("/gigs", h.ListGigs)
		auth.GET("/gigs/check-conflict", h.CheckConflict)
		auth.GET("/gigs/:id", h.GetGig)
	}

	admin := auth.Group("", AdminMiddleware())
	{
		admin.POST("/gigs", h.CreateGig)
		admin.PUT("/gigs/:id", h.UpdateGig)
		admin.DELETE("/gigs/:id", h.DeleteGig)
		admin.GET("/settlements/package", h.GetSettlementPackage)
		admin.POST("/settlements/preview", h.PreviewBulkSettlement)
		admin.POST("/settlements/single/:id", h.SettleSingle)
		admin.POST("/settlements/bulk", h.SettleBulk)
	}
}

// Authentication handlers
func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid signup request: "+err.Error())
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid login request: "+err.Error())
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Lookup handlers
func (h *Handler) GetRates(c *gin.Context) {
	rate, err := h.svc.GetExchangeRate(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RateResponse{Status: "success", Rate: *rate})
}

func (h *Handler) ListStatuses(c *gin.Context) {
	statuses, err := h.svc.ListStatuses(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, statuses)
}

// Band handlers
func (h *Handler) CreateBand(c *gin.Context) {
	var req models.CreateBandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid band request: "+err.Error())
		return
	}

	userID := c.GetString("userId")
	band, err := h.svc.CreateBand(c.Request.Context(), userID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.BandResponse{Status: "success", Band: band})
}

func (h *Handler) GetMyBands(c *gin.Context) {
	userID := c.GetString("userId")
	bands, err := h.svc.GetMyBands(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, bands)
}

// Gig handlers
func (h *Handler) ListGigs(c *gin.Context) {
	filter := models.GigListFilter{
		Timeline: c.Query("timeline"),
		StatusID: c.Query("status"),
		Paid:     c.Query("paid"),
	}
	if yearStr := c.Query("year"); yearStr != "" && yearStr != "all" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			badRequest(c, "Invalid year filter")
			return
		}
		filter.Year = year
	}

	gigs, err := h.svc.ListGigs(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gigs)
}

func (h *Handler) GetGig(c *gin.Context) {
	gig, err := h.svc.GetGig(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if gig == nil {
		notFound(c, "Gig not found")
		return
	}

	c.JSON(http.StatusOK, gig)
}

func (h *Handler) CheckConflict(c *gin.Context) {
	resp, err := h.svc.CheckConflict(c.Request.Context(), c.Query("date"), c.Query("venue"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CreateGig(c *gin.Context) {
	var req models.GigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid gig request: "+err.Error())
		return
	}

	userID := c.GetString("userId")
	gig, err := h.svc.CreateGig(c.Request.Context(), userID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.GigResponse{Status: "success", GigID: gig.ID})
}

func (h *Handler) UpdateGig(c *gin.Context) {
	var req models.GigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid gig request: "+err.Error())
		return
	}

	if err := h.svc.UpdateGig(c.Request.Context(), c.Param("id"), req); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.GigResponse{Status: "success", GigID: c.Param("id")})
}

func (h *Handler) DeleteGig(c *gin.Context) {
	if err := h.svc.DeleteGig(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Settlement handlers
func (h *Handler) GetSettlementPackage(c *gin.Context) {
	resp, err := h.svc.GetSettlementPackage(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) PreviewBulkSettlement(c *gin.Context) {
	var req models.BulkPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid preview request: "+err.Error())
		return
	}

	resp, err := h.svc.PreviewBulkSettlement(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SettleSingle(c *gin.Context) {
	resp, err := h.svc.SettleSingle(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SettleBulk(c *gin.Context) {
	var req models.BulkSettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid bulk settle request: "+err.Error())
		return
	}

	resp, err := h.svc.SettleBulk(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleError maps service and repository errors onto HTTP responses.
// Validation failures mean nothing was attempted; settlement failures mean a
// transaction was attempted and rolled back. Callers can tell them apart by
// status code and error code.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status: "error", Code: "UNAUTHORIZED", Message: err.Error(),
		})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status: "error", Code: "EMAIL_TAKEN", Message: err.Error(),
		})
	case errors.Is(err, repository.ErrGigNotFound):
		notFound(c, err.Error())
	case errors.Is(err, repository.ErrAlreadySettled):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "ALREADY_SETTLED", Message: "This gig is already fully paid.",
		})
	case errors.Is(err, money.ErrUnsupportedCurrency):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status: "error", Code: "INVALID_CURRENCY", Message: err.Error(),
		})
	case errors.Is(err, service.ErrInvalidInput):
		badRequest(c, err.Error())
	case errors.Is(err, repository.ErrSettlementFailed):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status: "error", Code: "SETTLEMENT_FAILED",
			Message: "A failure occurred while processing the payment. The transaction was rolled back.",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status: "error", Code: "INTERNAL_ERROR", Message: "Internal server error",
		})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status: "error", Code: "VALIDATION_ERROR", Message: message,
	})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Status: "error", Code: "NOT_FOUND", Message: message,
	})
}
