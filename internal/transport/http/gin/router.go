package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	"github.com/kirinyoku/raffle-go/internal/repository"
	redisrepo "github.com/kirinyoku/raffle-go/internal/repository/redis"
	"github.com/kirinyoku/raffle-go/internal/service/orders"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	idemLockTTL          = 60 * time.Second
)

type handler struct {
	deps Deps
	log  *slog.Logger
}

func NewRouter(deps Deps, logger *slog.Logger, middlewares ...gin.HandlerFunc) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{deps: deps, log: logger}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limited := RateLimitMiddleware(deps.Limiter, logger)

	// Public API
	r.GET("/raffles/:id", h.getRaffle)
	r.GET("/raffles/:id/statistics", h.getStatistics)

	r.POST("/raffles/:id/carts", limited, h.openCart)
	r.POST("/carts/:id/tickets", limited, h.addCartTickets)
	r.DELETE("/carts/:id/tickets", h.removeCartTickets)

	r.POST("/orders", h.createOrder)
	r.GET("/orders/:id", h.getOrder)

	// Admin API
	admin := r.Group("/admin")
	{
		admin.POST("/raffles", h.createRaffle)
		admin.PATCH("/raffles/:id", h.editRaffle)
		admin.PUT("/raffles/:id/status", h.updateRaffleStatus)
		admin.PUT("/raffles/:id/winner", h.recordWinner)
		admin.DELETE("/raffles/:id", h.deleteRaffle)

		admin.PUT("/orders/:id/status", h.updateOrderStatus)
		admin.PUT("/orders/:id/comment", h.setOrderComment)
		admin.DELETE("/orders/:id/comment", h.removeOrderComment)
	}

	return r
}

// @Summary  Get raffle with statistics
// @Param    id  path  int  true  "Raffle ID"
// @Success  200  {object}  RaffleSummaryResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /raffles/{id} [get]
func (h *handler) getRaffle(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	sum, err := h.deps.Query.RaffleSummary(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, RaffleSummaryResponse{
		Raffle:          toRaffleResponse(&sum.Raffle),
		Statistics:      toStatisticsResponse(&sum.Statistics),
		ReservedTickets: sum.ReservedTickets,
	}, "public, max-age=60", true)
}

// @Summary  Get raffle statistics
// @Param    id  path  int  true  "Raffle ID"
// @Success  200  {object}  StatisticsResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /raffles/{id}/statistics [get]
func (h *handler) getStatistics(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	st, err := h.deps.Query.Statistics(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	writeJSONWithCache(c, http.StatusOK, toStatisticsResponse(st), "public, max-age=15", true)
}

// @Summary  Open cart
// @Param    id  path  int  true  "Raffle ID"
// @Success  201 {object} CartResponse
// @Failure  422 {object} ErrorResponse "raffle not ACTIVE"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /raffles/{id}/carts [post]
func (h *handler) openCart(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	cart, err := h.deps.Carts.Open(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCartResponse(cart))
}

// @Summary  Reserve tickets into a cart
// @Param    id  path  string  true  "Cart ID (uuid)"
// @Param    req body  TicketIDsRequest true "payload"
// @Success  200 {array}  TicketResponse
// @Failure  409 {object} ErrorResponse "tickets unavailable"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /carts/{id}/tickets [post]
func (h *handler) addCartTickets(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req TicketIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	tickets, err := h.deps.Carts.AddTickets(c.Request.Context(), id, req.TicketIDs)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toTicketResponses(tickets))
}

// @Summary  Release tickets from a cart
// @Param    id  path  string  true  "Cart ID (uuid)"
// @Param    req body  TicketIDsRequest true "payload"
// @Success  204
// @Failure  409 {object} ErrorResponse "tickets not held by the cart"
// @Router   /carts/{id}/tickets [delete]
func (h *handler) removeCartTickets(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req TicketIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.deps.Carts.RemoveTickets(c.Request.Context(), id, req.TicketIDs); err != nil {
		h.respondErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary  Place order from a cart (idempotent)
// @Param    req body  CreateOrderRequest true "payload"
// @Param    Idempotency-Key header string false "replay protection"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} OrderResponse
// @Failure  409 {object} ErrorResponse "tickets unavailable / idem in progress"
// @Failure  422 {object} ErrorResponse
// @Router   /orders [post]
func (h *handler) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		badRequest(c, "invalid cart_id")
		return
	}

	ctx := c.Request.Context()
	idem := h.deps.Idempotency

	idemKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
	var idemStorageKey string
	if idem != nil && idemKey != "" {
		idemStorageKey = redisrepo.KeyIdemOrder(idemKey)

		if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
			replay(c, idemKey, payload)
			return
		}

		locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
		if err != nil {
			h.respondErr(c, err)
			return
		}
		if !locked {
			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		}
	}

	order, err := h.deps.Orders.Create(ctx, orders.CreateInput{
		CartID:    cartID,
		TicketIDs: req.TicketIDs,
		Customer: domain.Customer{
			FullName:    req.Customer.FullName,
			Email:       req.Customer.Email,
			PhonePrefix: req.Customer.PhonePrefix,
			PhoneNumber: req.Customer.PhoneNumber,
		},
		Method: req.PaymentMethod,
	})
	if err != nil {
		if idemStorageKey != "" {
			_ = idem.Release(ctx, idemStorageKey)
		}
		h.respondErr(c, err)
		return
	}

	resp := toOrderResponse(order)

	if idemStorageKey != "" {
		b, _ := json.Marshal(resp)
		if err := idem.SaveResult(ctx, idemStorageKey, string(b)); err != nil {
			h.log.Warn("save idempotent result", slog.String("order_id", resp.ID), slog.Any("error", err))
		}
		c.Header(headerIdempotencyKey, idemKey)
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary  Get order with customer
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} OrderResponse
// @Failure  404 {object} ErrorResponse
// @Router   /orders/{id} [get]
func (h *handler) getOrder(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.deps.Query.Order(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderWithCustomerResponse(o))
}

// @Summary  Create raffle
// @Param    req body  CreateRaffleRequest true "payload"
// @Success  201 {object} RaffleResponse
// @Failure  422 {object} ErrorResponse
// @Router   /admin/raffles [post]
func (h *handler) createRaffle(c *gin.Context) {
	var req CreateRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	raffle, err := h.deps.Raffles.Create(c.Request.Context(), req.draft())
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRaffleResponse(raffle))
}

// @Summary  Edit raffle
// @Param    id  path  int  true  "Raffle ID"
// @Param    req body  EditRaffleRequest true "fields to change"
// @Success  200 {object} RaffleResponse
// @Failure  403 {object} ErrorResponse "raffle has a winner"
// @Failure  422 {object} ErrorResponse
// @Router   /admin/raffles/{id} [patch]
func (h *handler) editRaffle(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	var req EditRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	raffle, err := h.deps.Raffles.Edit(c.Request.Context(), id, req.edit())
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toRaffleResponse(raffle))
}

// @Summary  Change raffle status
// @Param    id  path  int  true  "Raffle ID"
// @Param    req body  StatusRequest true "target status"
// @Success  200 {object} RaffleResponse
// @Failure  409 {object} ErrorResponse "unsupported transition"
// @Failure  422 {object} ErrorResponse
// @Router   /admin/raffles/{id}/status [put]
func (h *handler) updateRaffleStatus(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	to, ok := domain.ParseRaffleStatus(req.Status)
	if !ok {
		badRequest(c, "invalid status")
		return
	}

	raffle, err := h.deps.Raffles.UpdateStatus(c.Request.Context(), id, to)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toRaffleResponse(raffle))
}

// @Summary  Record winning ticket
// @Param    id  path  int  true  "Raffle ID"
// @Param    req body  WinnerRequest true "payload"
// @Success  200 {object} RaffleResponse
// @Router   /admin/raffles/{id}/winner [put]
func (h *handler) recordWinner(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	var req WinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	raffle, err := h.deps.Raffles.RecordWinner(c.Request.Context(), id, req.TicketID)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toRaffleResponse(raffle))
}

// @Summary  Delete PENDING raffle
// @Param    id  path  int  true  "Raffle ID"
// @Success  204
// @Failure  403 {object} ErrorResponse
// @Router   /admin/raffles/{id} [delete]
func (h *handler) deleteRaffle(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.deps.Raffles.Delete(c.Request.Context(), id); err != nil {
		h.respondErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary  Change order status
// @Param    id  path  string  true  "Order ID (uuid)"
// @Param    req body  StatusRequest true "target status"
// @Success  200 {object} OrderResponse
// @Failure  409 {object} ErrorResponse "unsupported transition / raffle status mismatch"
// @Router   /admin/orders/{id}/status [put]
func (h *handler) updateOrderStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	to, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		badRequest(c, "invalid status")
		return
	}

	o, err := h.deps.Orders.UpdateStatus(c.Request.Context(), id, to)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

// @Summary  Add or edit order comment
// @Param    id  path  string  true  "Order ID (uuid)"
// @Param    req body  CommentRequest true "payload"
// @Success  200 {object} OrderResponse
// @Failure  422 {object} ErrorResponse
// @Router   /admin/orders/{id}/comment [put]
func (h *handler) setOrderComment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	o, err := h.deps.Orders.SetComment(c.Request.Context(), id, req.Comment)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

// @Summary  Remove order comment
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} OrderResponse
// @Router   /admin/orders/{id}/comment [delete]
func (h *handler) removeOrderComment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.deps.Orders.RemoveComment(c.Request.Context(), id)
	if err != nil {
		h.respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header(headerIdempotencyKey, idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

func (h *handler) respondErr(c *gin.Context, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", slog.String("request_id", requestID(c)), slog.Any("error", err))
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

// classify maps the error taxonomy to a status and a client-safe body.
func classify(err error) (int, ErrorResponse) {
	var (
		verr lifecycle.ValidationError
		nf   lifecycle.NotFoundError
		fb   lifecycle.ForbiddenError
		ut   lifecycle.UnsupportedTransitionError
		mm   lifecycle.RaffleStatusMismatchError
		unav lifecycle.TicketsUnavailableError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Reason, Field: verr.Field}
	case errors.As(err, &nf):
		return http.StatusNotFound, ErrorResponse{Error: nf.Error()}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.As(err, &fb):
		return http.StatusForbidden, ErrorResponse{Error: fb.Error()}
	case errors.As(err, &ut):
		return http.StatusConflict, ErrorResponse{Error: ut.Error()}
	case errors.As(err, &mm):
		return http.StatusConflict, ErrorResponse{Error: mm.Error()}
	case errors.As(err, &unav):
		return http.StatusConflict, ErrorResponse{Error: unav.Error()}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, ErrorResponse{Error: "conflict, retry the request"}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal error"}
}
