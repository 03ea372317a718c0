package httpgin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	"github.com/kirinyoku/raffle-go/internal/repository"
	"github.com/kirinyoku/raffle-go/internal/service/orders"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	quiet   = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func sampleRaffle() *domain.Raffle {
	return &domain.Raffle{
		ID:           7,
		Title:        "Bike",
		Status:       domain.RaffleActive,
		TotalTickets: 5,
		TicketPrice:  decimal.RequireFromString("20"),
		EndDate:      testNow.Add(30 * 24 * time.Hour),
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
}

func sampleOrder(id uuid.UUID) *domain.Order {
	return &domain.Order{
		ID:        id,
		Reference: "RF-01",
		RaffleID:  7,
		Status:    domain.OrderPending,
		Items: []domain.OrderItem{
			{TicketID: 1, TicketNumber: "1", PriceAtPurchase: decimal.RequireFromString("20")},
			{TicketID: 2, TicketNumber: "2", PriceAtPurchase: decimal.RequireFromString("20")},
		},
		Payment:   domain.Payment{Total: decimal.RequireFromString("40"), Method: domain.PaymentCard},
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	r := NewRouter(Deps{}, quiet)
	w := do(t, r, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGetRaffleETag(t *testing.T) {
	t.Parallel()

	q := &fakeQuery{summary: func(id int64) (*domain.RaffleSummary, error) {
		r := sampleRaffle()
		st := lifecycle.NewStatistics(id, 5)
		st.Revenue = decimal.RequireFromString("40")
		st.AverageOrderValue = decimal.RequireFromString("40")
		st.AvailableTickets = 1
		st.SoldTickets = 2
		return &domain.RaffleSummary{Raffle: *r, Statistics: st, ReservedTickets: 2}, nil
	}}
	r := NewRouter(Deps{Query: q}, quiet)

	w := do(t, r, http.MethodGet, "/raffles/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	body := decode[RaffleSummaryResponse](t, w)
	require.Equal(t, "20.00", body.Raffle.TicketPrice)
	require.Equal(t, "40.00", body.Statistics.Revenue)
	require.Equal(t, "40.00", body.Statistics.AverageOrderValue)
	require.Equal(t, 2, body.ReservedTickets)
	require.Equal(t, body.Raffle.TotalTickets,
		body.Statistics.AvailableTickets+body.Statistics.SoldTickets+body.ReservedTickets)

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = do(t, r, http.MethodGet, "/raffles/7", nil, "If-None-Match", tag)
	require.Equal(t, http.StatusNotModified, w.Code)
	require.Empty(t, w.Body.Bytes())
}

func TestEtagMatches(t *testing.T) {
	t.Parallel()

	require.True(t, etagMatches(`W/"abc"`, `W/"abc"`))
	require.True(t, etagMatches(`"x", "abc"`, `W/"abc"`))
	require.True(t, etagMatches(`*`, `"abc"`))
	require.False(t, etagMatches(`"abd"`, `"abc"`))
	require.False(t, etagMatches("", `"abc"`))
}

func TestInvalidParams(t *testing.T) {
	t.Parallel()

	r := NewRouter(Deps{}, quiet)

	require.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/raffles/abc", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/orders/not-a-uuid", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/carts/nope/tickets", TicketIDsRequest{}).Code)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	wrap := func(err error) error { return fmt.Errorf("service.orders.UpdateStatus: %w", err) }

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{
			name:   "unsupported transition",
			err:    wrap(lifecycle.UnsupportedTransitionError{Entity: "order", From: "COMPLETED", To: "CANCELLED"}),
			status: http.StatusConflict,
			msg:    "unsupported order transition from COMPLETED to CANCELLED",
		},
		{
			name: "raffle mismatch",
			err: wrap(lifecycle.RaffleStatusMismatchError{
				From: domain.OrderPending, To: domain.OrderUnpaid,
				Actual: domain.RaffleActive, Expected: domain.RaffleCompleted,
			}),
			status: http.StatusConflict,
			msg:    "cannot move order from PENDING to UNPAID: raffle is ACTIVE, expected COMPLETED",
		},
		{name: "tickets unavailable", err: wrap(lifecycle.TicketsUnavailableError{TicketIDs: []int64{3}}), status: http.StatusConflict},
		{name: "serialization conflict", err: wrap(repository.ErrConflict), status: http.StatusConflict},
		{name: "not found", err: wrap(lifecycle.NotFoundError{Resource: "order"}), status: http.StatusNotFound, msg: "order not found"},
		{name: "raw not found", err: wrap(repository.ErrNotFound), status: http.StatusNotFound},
		{name: "validation", err: wrap(lifecycle.ValidationError{Field: "comment", Reason: "too long"}), status: http.StatusUnprocessableEntity, msg: "too long"},
		{name: "forbidden", err: wrap(lifecycle.ForbiddenError{Reason: "no"}), status: http.StatusForbidden, msg: "no"},
		{name: "other", err: errors.New("db down"), status: http.StatusInternalServerError, msg: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := &fakeOrders{updateStatus: func(uuid.UUID, domain.OrderStatus) (*domain.Order, error) {
				return nil, tt.err
			}}
			r := NewRouter(Deps{Orders: o}, quiet)

			w := do(t, r, http.MethodPut, "/admin/orders/"+uuid.NewString()+"/status", StatusRequest{Status: "CANCELLED"})
			require.Equal(t, tt.status, w.Code)
			if tt.msg != "" {
				require.Equal(t, tt.msg, decode[ErrorResponse](t, w).Error)
			}
		})
	}
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	o := &fakeOrders{updateStatus: func(uuid.UUID, domain.OrderStatus) (*domain.Order, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := NewRouter(Deps{Orders: o}, quiet)

	w := do(t, r, http.MethodPut, "/admin/orders/"+uuid.NewString()+"/status", StatusRequest{Status: "SHIPPED"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRaffle(t *testing.T) {
	t.Parallel()

	var got lifecycle.RaffleDraft
	rs := &fakeRaffles{create: func(d lifecycle.RaffleDraft) (*domain.Raffle, error) {
		got = d
		r := sampleRaffle()
		r.Status = domain.RafflePending
		return r, nil
	}}
	r := NewRouter(Deps{Raffles: rs}, quiet)

	w := do(t, r, http.MethodPost, "/admin/raffles", map[string]any{
		"title":               "Bike",
		"total_tickets":       5,
		"first_ticket_number": 1,
		"ticket_price":        "19.5",
		"end_date":            testNow.Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "Bike", got.Title)
	require.Equal(t, 5, got.TotalTickets)
	require.True(t, got.TicketPrice.Equal(decimal.RequireFromString("19.50")))
	require.Equal(t, "PENDING", decode[RaffleResponse](t, w).Status)
}

func TestEditRafflePartial(t *testing.T) {
	t.Parallel()

	var got lifecycle.RaffleEdit
	rs := &fakeRaffles{edit: func(_ int64, e lifecycle.RaffleEdit) (*domain.Raffle, error) {
		got = e
		return sampleRaffle(), nil
	}}
	r := NewRouter(Deps{Raffles: rs}, quiet)

	w := do(t, r, http.MethodPatch, "/admin/raffles/7", map[string]any{"total_tickets": 8})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.TotalTickets)
	require.Equal(t, 8, *got.TotalTickets)
	require.Nil(t, got.Title)
	require.Nil(t, got.EndDate)
}

func TestCartFlow(t *testing.T) {
	t.Parallel()

	cartID := uuid.New()
	var added []int64
	cs := &fakeCarts{
		open: func(raffleID int64) (*domain.Cart, error) {
			return &domain.Cart{ID: cartID, RaffleID: raffleID, Status: domain.CartActive, ExpiresAt: testNow}, nil
		},
		add: func(id uuid.UUID, ids []int64) ([]*domain.Ticket, error) {
			require.Equal(t, cartID, id)
			added = ids
			return []*domain.Ticket{{ID: 1, Number: "1", Status: domain.TicketReserved}}, nil
		},
		remove: func(uuid.UUID, []int64) error {
			return lifecycle.TicketsUnavailableError{TicketIDs: []int64{9}}
		},
	}
	r := NewRouter(Deps{Carts: cs}, quiet)

	w := do(t, r, http.MethodPost, "/raffles/7/carts", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, cartID.String(), decode[CartResponse](t, w).ID)

	w = do(t, r, http.MethodPost, "/carts/"+cartID.String()+"/tickets", TicketIDsRequest{TicketIDs: []int64{1}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []int64{1}, added)
	require.Equal(t, "RESERVED", decode[[]TicketResponse](t, w)[0].Status)

	w = do(t, r, http.MethodDelete, "/carts/"+cartID.String()+"/tickets", TicketIDsRequest{TicketIDs: []int64{9}})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestRateLimited(t *testing.T) {
	t.Parallel()

	cs := &fakeCarts{open: func(int64) (*domain.Cart, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := NewRouter(Deps{Carts: cs, Limiter: fixedLimiter{allow: false, retry: 1500 * time.Millisecond}}, quiet)

	w := do(t, r, http.MethodPost, "/raffles/7/carts", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestCreateOrderIdempotent(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &fakeOrders{create: func(in orders.CreateInput) (*domain.Order, error) {
		require.Equal(t, "Ann", in.Customer.FullName)
		require.Equal(t, domain.PaymentUnknown, in.Method)
		return sampleOrder(orderID), nil
	}}
	r := NewRouter(Deps{Orders: svc, Idempotency: newMemIdem()}, quiet)

	body := map[string]any{
		"cart_id":        uuid.NewString(),
		"ticket_ids":     []int64{1, 2},
		"customer":       map[string]any{"full_name": "Ann", "email": "ann@example.com"},
		"payment_method": "DOGECOIN",
	}

	first := do(t, r, http.MethodPost, "/orders", body, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, "k1", first.Header().Get("Idempotency-Key"))

	resp := decode[OrderResponse](t, first)
	require.Equal(t, "40.00", resp.Total)
	require.Equal(t, "20.00", resp.Items[0].Price)
	require.Equal(t, "CARD", resp.PaymentMethod)

	second := do(t, r, http.MethodPost, "/orders", body, "Idempotency-Key", "k1")
	require.Equal(t, http.StatusCreated, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, svc.created)

	third := do(t, r, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, third.Code)
	require.Equal(t, 2, svc.created)
}

func TestCreateOrderFailureReleasesKey(t *testing.T) {
	t.Parallel()

	calls := 0
	svc := &fakeOrders{create: func(orders.CreateInput) (*domain.Order, error) {
		calls++
		if calls == 1 {
			return nil, lifecycle.ValidationError{Field: "ticket_ids", Reason: "all cart tickets must be included"}
		}
		return sampleOrder(uuid.New()), nil
	}}
	r := NewRouter(Deps{Orders: svc, Idempotency: newMemIdem()}, quiet)

	body := map[string]any{"cart_id": uuid.NewString(), "ticket_ids": []int64{1}}

	w := do(t, r, http.MethodPost, "/orders", body, "Idempotency-Key", "k2")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "ticket_ids", decode[ErrorResponse](t, w).Field)

	w = do(t, r, http.MethodPost, "/orders", body, "Idempotency-Key", "k2")
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateOrderInProgress(t *testing.T) {
	t.Parallel()

	idem := newMemIdem()
	_, _ = idem.AcquireLock(t.Context(), "rafflego:v1:idem:orders:busy", time.Minute)

	r := NewRouter(Deps{Orders: &fakeOrders{}, Idempotency: idem}, quiet)
	w := do(t, r, http.MethodPost, "/orders", map[string]any{"cart_id": uuid.NewString()}, "Idempotency-Key", "busy")

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestGetOrderIncludesCustomer(t *testing.T) {
	t.Parallel()

	email := "ann@example.com"
	q := &fakeQuery{order: func(id uuid.UUID) (*domain.OrderWithCustomer, error) {
		return &domain.OrderWithCustomer{
			Order:    *sampleOrder(id),
			Customer: domain.Customer{ID: 3, FullName: "Ann", Email: &email},
		}, nil
	}}
	r := NewRouter(Deps{Query: q}, quiet)

	id := uuid.New()
	w := do(t, r, http.MethodGet, "/orders/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[OrderResponse](t, w)
	require.Equal(t, id.String(), resp.ID)
	require.NotNil(t, resp.Customer)
	require.Equal(t, "Ann", resp.Customer.FullName)
}

func TestOrderComment(t *testing.T) {
	t.Parallel()

	svc := &fakeOrders{setComment: func(id uuid.UUID, text string) (*domain.Order, error) {
		clean := lifecycle.SanitizeComment(text)
		o := sampleOrder(id)
		o.Comment = &clean
		return o, nil
	}}
	r := NewRouter(Deps{Orders: svc}, quiet)

	id := uuid.NewString()
	w := do(t, r, http.MethodPut, "/admin/orders/"+id+"/comment", CommentRequest{Comment: "<b>call</b> me"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "call me", *decode[OrderResponse](t, w).Comment)

	w = do(t, r, http.MethodDelete, "/admin/orders/"+id+"/comment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, decode[OrderResponse](t, w).Comment)
}

func TestDeleteRaffle(t *testing.T) {
	t.Parallel()

	rs := &fakeRaffles{del: func(id int64) error {
		if id == 1 {
			return nil
		}
		return lifecycle.ForbiddenError{Reason: "only PENDING raffles can be deleted"}
	}}
	r := NewRouter(Deps{Raffles: rs}, quiet)

	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/admin/raffles/1", nil).Code)
	require.Equal(t, http.StatusForbidden, do(t, r, http.MethodDelete, "/admin/raffles/2", nil).Code)
}

func TestRecordWinnerAndStatus(t *testing.T) {
	t.Parallel()

	rs := &fakeRaffles{
		winner: func(id, ticketID int64) (*domain.Raffle, error) {
			r := sampleRaffle()
			r.Status = domain.RaffleCompleted
			r.WinningTicketID = &ticketID
			return r, nil
		},
		updateStatus: func(_ int64, to domain.RaffleStatus) (*domain.Raffle, error) {
			r := sampleRaffle()
			r.Status = to
			return r, nil
		},
	}
	r := NewRouter(Deps{Raffles: rs}, quiet)

	w := do(t, r, http.MethodPut, "/admin/raffles/7/winner", WinnerRequest{TicketID: 3})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(3), *decode[RaffleResponse](t, w).WinningTicketID)

	w = do(t, r, http.MethodPut, "/admin/raffles/7/status", StatusRequest{Status: "PAUSED"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "PAUSED", decode[RaffleResponse](t, w).Status)

	w = do(t, r, http.MethodPut, "/admin/raffles/7/status", StatusRequest{Status: "paused"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
