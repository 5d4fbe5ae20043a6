package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	checkout     *service.CheckoutService
	returns      *service.ReturnService
	cashRegister *service.CashRegisterService
	loyalty      *service.LoyaltyService
	storeTimeout time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checkout *service.CheckoutService,
	returns *service.ReturnService,
	cashRegister *service.CashRegisterService,
	loyalty *service.LoyaltyService,
	storeTimeout time.Duration,
) *Handler {
	return &Handler{
		checkout:     checkout,
		returns:      returns,
		cashRegister: cashRegister,
		loyalty:      loyalty,
		storeTimeout: storeTimeout,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(h.timeoutMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout", h.createCheckout)
		v1.GET("/invoices/:invoice_number", h.getInvoice)

		v1.GET("/returns/invoice/:invoice_number", h.lookupInvoiceForReturn)
		v1.POST("/returns", h.createReturn)
		v1.GET("/returns/:return_number", h.getReturn)

		v1.POST("/cash-register/open", h.openRegister)
		v1.POST("/cash-register/expenses", h.addExpense)
		v1.POST("/cash-register/close", h.closeRegister)
		v1.GET("/cash-register/status", h.registerStatus)
		v1.GET("/cash-register/history", h.registerHistory)

		v1.POST("/loyalty/redemption", h.redeemPoints)
		v1.GET("/loyalty/transactions/:phone", h.loyaltyTransactions)
		v1.POST("/loyalty/adjust", h.adjustPoints)
	}
}

// respondError maps the service error taxonomy onto HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTimeout):
		status = http.StatusGatewayTimeout
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createCheckout handles sale completion
func (h *Handler) createCheckout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.checkout.Checkout(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getInvoice handles invoice retrieval by number
func (h *Handler) getInvoice(c *gin.Context) {
	invoice, items, err := h.checkout.GetInvoice(c.Request.Context(), c.Param("invoice_number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice": invoice,
		"items":   items,
	})
}

// lookupInvoiceForReturn handles the pre-return invoice view
func (h *Handler) lookupInvoiceForReturn(c *gin.Context) {
	lookup, err := h.returns.LookupInvoice(c.Request.Context(), c.Param("invoice_number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lookup)
}

// createReturn handles return processing
func (h *Handler) createReturn(c *gin.Context) {
	var req service.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.returns.ProcessReturn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getReturn handles return retrieval by number
func (h *Handler) getReturn(c *gin.Context) {
	ret, items, err := h.returns.GetReturn(c.Request.Context(), c.Param("return_number"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"return": ret,
		"items":  items,
	})
}

type openRegisterRequest struct {
	// A zero opening float is legal, so no required binding here
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Notes          string          `json:"notes,omitempty"`
}

// openRegister handles opening the register day
func (h *Handler) openRegister(c *gin.Context) {
	var req openRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	day, err := h.cashRegister.Open(c.Request.Context(), req.OpeningBalance, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, day)
}

type addExpenseRequest struct {
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// addExpense handles recording a cash outflow
func (h *Handler) addExpense(c *gin.Context) {
	var req addExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	expense, err := h.cashRegister.AddExpense(c.Request.Context(), req.Category, req.Description, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// closeRegister handles closing the register day
func (h *Handler) closeRegister(c *gin.Context) {
	day, err := h.cashRegister.Close(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, day)
}

// registerStatus handles the drawer snapshot
func (h *Handler) registerStatus(c *gin.Context) {
	status, err := h.cashRegister.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// registerHistory handles past register days; start/end are YYYY-MM-DD
func (h *Handler) registerHistory(c *gin.Context) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if s := c.Query("start"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date"})
			return
		}
		start = parsed
	}
	if e := c.Query("end"); e != "" {
		parsed, err := time.Parse("2006-01-02", e)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date"})
			return
		}
		end = parsed
	}

	days, err := h.cashRegister.History(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registers": days})
}

type redeemPointsRequest struct {
	CustomerPhone  string `json:"customer_phone" binding:"required"`
	PointsToRedeem int    `json:"points_to_redeem" binding:"required,min=1"`
}

// redeemPoints handles standalone point redemption
func (h *Handler) redeemPoints(c *gin.Context) {
	var req redeemPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.loyalty.Redeem(c.Request.Context(), req.CustomerPhone, req.PointsToRedeem, ""); err != nil {
		respondError(c, err)
		return
	}

	customer, err := h.loyalty.Balance(c.Request.Context(), req.CustomerPhone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"points_redeemed":  req.PointsToRedeem,
		"discount_amount":  decimal.NewFromInt(int64(req.PointsToRedeem)),
		"remaining_points": customer.LoyaltyPoints,
	})
}

// loyaltyTransactions handles ledger retrieval for a customer
func (h *Handler) loyaltyTransactions(c *gin.Context) {
	txns, err := h.loyalty.Transactions(c.Request.Context(), c.Param("phone"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

type adjustPointsRequest struct {
	CustomerPhone string `json:"customer_phone" binding:"required"`
	PointsDelta   int    `json:"points_delta" binding:"required"`
	Description   string `json:"description" binding:"required"`
}

// adjustPoints handles administrative balance corrections
func (h *Handler) adjustPoints(c *gin.Context) {
	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.loyalty.Adjust(c.Request.Context(), req.CustomerPhone, req.PointsDelta, req.Description); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Balance adjusted"})
}

// timeoutMiddleware bounds every request's store calls by the configured
// deadline; expiry surfaces as ErrTimeout and maps to 504.
func (h *Handler) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
