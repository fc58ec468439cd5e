package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"salon-service/internal/gateway"
	"salon-service/internal/models"
	"salon-service/internal/service"
	"salon-service/internal/util"
	"salon-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog           *service.CatalogService
	cart              *service.CartService
	checkout          *service.CheckoutService
	orders            *service.OrderService
	bookings          *service.BookingService
	inventory         *service.InventoryService
	stats             *worker.StatsReader
	lowStockThreshold int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	orders *service.OrderService,
	bookings *service.BookingService,
	inventory *service.InventoryService,
	stats *worker.StatsReader,
	lowStockThreshold int,
) *Handler {
	return &Handler{
		catalog:           catalog,
		cart:              cart,
		checkout:          checkout,
		orders:            orders,
		bookings:          bookings,
		inventory:         inventory,
		stats:             stats,
		lowStockThreshold: lowStockThreshold,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:slug", h.getProduct)
		v1.GET("/services", h.listServices)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addToCart)
		v1.DELETE("/cart/items/:variantID", h.removeFromCart)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/buy-now", h.setBuyNow)

		v1.POST("/checkout/cart", h.checkoutCart)
		v1.POST("/checkout/buy-now", h.checkoutBuyNow)

		v1.POST("/payment/verify", h.verifyPayment)
		v1.POST("/payment/bookings/:id/verify", h.verifyBookingPayment)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)

		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings", h.listBookings)
		v1.GET("/bookings/slots", h.availableSlots)
		v1.GET("/bookings/estimate", h.estimateBookingPrice)
		v1.GET("/bookings/:id", h.getBooking)
		v1.POST("/bookings/:id/cancel", h.cancelBooking)
		v1.POST("/bookings/:id/payment", h.retryBookingPayment)

		admin := v1.Group("/admin")
		{
			admin.GET("/orders", h.adminListOrders)
			admin.PATCH("/orders/:id/status", h.adminUpdateOrderStatus)
			admin.GET("/bookings", h.adminListBookings)
			admin.PATCH("/bookings/:id/status", h.adminUpdateBookingStatus)
			admin.PUT("/variants/:id/stock", h.adminSetStock)
			admin.POST("/variants/:id/stock/adjust", h.adminAdjustStock)
			admin.GET("/low-stock", h.adminLowStock)
			admin.GET("/stats/daily", h.adminDailyStats)
		}
	}
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

// userID extracts the authenticated visitor id placed on the request by
// the upstream auth layer. Identity verification happens before this
// service.
func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid X-User-ID header"})
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondError translates domain errors into HTTP responses
func respondError(c *gin.Context, err error) {
	var (
		validationErr *models.ValidationError
		stockErr      *models.InsufficientStockError
		terminalErr   *models.TerminalStatusError
		cancelErr     *models.NotCancellableError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"field":   validationErr.Field,
			"details": validationErr.Reason,
		})

	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrVariantNotFound),
		errors.Is(err, models.ErrServiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "Insufficient stock",
			"variant_id": stockErr.VariantID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})

	case errors.Is(err, models.ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Time slot already booked"})

	case errors.As(err, &terminalErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Status can no longer change",
			"details": terminalErr.Error(),
		})

	case errors.As(err, &cancelErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Order cannot be cancelled at this stage",
			"details": cancelErr.Error(),
		})

	case errors.Is(err, gateway.ErrAmountBelowMinimum):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order total is below the payment gateway minimum"})

	case service.IsVerificationFailure(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Payment verification failed",
			"is_paid": false,
			"details": err.Error(),
		})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"details": err.Error(),
		})
	}
}

// --- catalog ---

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	view, err := h.catalog.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listServices(c *gin.Context) {
	services, err := h.catalog.ListServices(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// --- cart ---

type cartItemRequest struct {
	VariantID int64 `json:"variant_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

func (h *Handler) getCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	view, err := h.cart.GetCart(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) addToCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.cart.AddToCart(c.Request.Context(), uid, req.VariantID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to cart"})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	variantID, ok := pathID(c, "variantID")
	if !ok {
		return
	}

	if err := h.cart.RemoveFromCart(c.Request.Context(), uid, variantID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Removed from cart"})
}

func (h *Handler) clearCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	if err := h.cart.ClearCart(c.Request.Context(), uid); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func (h *Handler) setBuyNow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.cart.SetBuyNow(c.Request.Context(), uid, req.VariantID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item staged for direct purchase"})
}

// --- checkout & payment ---

func (h *Handler) checkoutCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	intent, err := h.cart.BeginCartCheckout(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *Handler) checkoutBuyNow(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	intent, err := h.cart.BeginBuyNowCheckout(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *Handler) verifyPayment(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req service.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.checkout.VerifyCheckout(c.Request.Context(), uid, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"is_paid": true,
		"order":   order,
	})
}

type verifyBookingRequest struct {
	GatewayOrderID string `json:"razorpay_order_id" binding:"required"`
	PaymentID      string `json:"razorpay_payment_id" binding:"required"`
	Signature      string `json:"razorpay_signature" binding:"required"`
}

func (h *Handler) verifyBookingPayment(c *gin.Context) {
	if _, ok := userID(c); !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req verifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := h.checkout.VerifyBookingPayment(
		c.Request.Context(), bookingID, req.GatewayOrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"is_paid": true,
		"booking": booking,
	})
}

// --- orders ---

func (h *Handler) listOrders(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	orders, err := h.orders.ListUserOrders(c.Request.Context(), uid, c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.orders.GetOrderForUser(c.Request.Context(), uid, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.orders.CancelByCustomer(c.Request.Context(), uid, orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
}

// --- bookings ---

func (h *Handler) createBooking(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, intent, err := h.bookings.CreateBooking(c.Request.Context(), uid, &req)
	if err != nil {
		if booking != nil {
			// Booked but the gateway order failed; the client retries
			// payment against the booking later.
			c.JSON(http.StatusCreated, gin.H{
				"booking": booking,
				"payment": nil,
				"warning": "Payment could not be initiated, retry via the booking payment endpoint",
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking": booking,
		"payment": intent,
	})
}

func (h *Handler) listBookings(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	bookings, err := h.bookings.ListCustomerBookings(c.Request.Context(), uid, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *Handler) getBooking(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.GetBookingForCustomer(c.Request.Context(), uid, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) cancelBooking(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.bookings.CancelByCustomer(c.Request.Context(), uid, bookingID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}

func (h *Handler) retryBookingPayment(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	intent, err := h.bookings.RetryBookingPayment(c.Request.Context(), uid, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *Handler) availableSlots(c *gin.Context) {
	serviceID, err := strconv.ParseInt(c.Query("service_id"), 10, 64)
	if err != nil || serviceID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service_id"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	slots, err := h.bookings.AvailableSlots(c.Request.Context(), serviceID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func (h *Handler) estimateBookingPrice(c *gin.Context) {
	serviceID, err := strconv.ParseInt(c.Query("service_id"), 10, 64)
	if err != nil || serviceID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service_id"})
		return
	}
	customers, err := strconv.Atoi(c.DefaultQuery("customers", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customers"})
		return
	}
	homeService := c.Query("home_service") == "true"

	breakdown, err := h.bookings.EstimatePrice(c.Request.Context(), serviceID, customers, homeService)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// --- admin ---

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) adminListOrders(c *gin.Context) {
	limit, offset := pagination(c)

	orders, err := h.orders.ListOrders(c.Request.Context(), c.Query("status"), c.Query("q"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) adminUpdateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), orderID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "status": req.Status})
}

func (h *Handler) adminListBookings(c *gin.Context) {
	limit, offset := pagination(c)

	bookings, err := h.bookings.ListBookings(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *Handler) adminUpdateBookingStatus(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.bookings.UpdateStatus(c.Request.Context(), bookingID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking status updated", "status": req.Status})
}

type setStockRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) adminSetStock(c *gin.Context) {
	variantID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventory.SetStock(c.Request.Context(), variantID, *req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock updated"})
}

type adjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *Handler) adminAdjustStock(c *gin.Context) {
	variantID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventory.AdjustStock(c.Request.Context(), variantID, req.Delta); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Stock adjusted"})
}

func (h *Handler) adminLowStock(c *gin.Context) {
	threshold := h.lowStockThreshold
	if v := c.Query("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threshold"})
			return
		}
		threshold = n
	}

	variants, err := h.inventory.ListLowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variants": variants, "threshold": threshold})
}

func (h *Handler) adminDailyStats(c *gin.Context) {
	day := time.Now().UTC()
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	stats, err := h.stats.DailyStats(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
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
