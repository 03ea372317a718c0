package httpgin

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
)

type CreateRaffleRequest struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	TotalTickets      int             `json:"total_tickets"`
	FirstTicketNumber int             `json:"first_ticket_number"`
	TicketPrice       decimal.Decimal `json:"ticket_price"`
	StartDate         *time.Time      `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
}

func (r CreateRaffleRequest) draft() lifecycle.RaffleDraft {
	return lifecycle.RaffleDraft{
		Title:             r.Title,
		Description:       r.Description,
		TotalTickets:      r.TotalTickets,
		FirstTicketNumber: r.FirstTicketNumber,
		TicketPrice:       r.TicketPrice,
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
	}
}

type EditRaffleRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	TicketPrice  *decimal.Decimal `json:"ticket_price"`
	EndDate      *time.Time       `json:"end_date"`
	TotalTickets *int             `json:"total_tickets"`
}

func (r EditRaffleRequest) edit() lifecycle.RaffleEdit {
	return lifecycle.RaffleEdit{
		Title:        r.Title,
		Description:  r.Description,
		TicketPrice:  r.TicketPrice,
		EndDate:      r.EndDate,
		TotalTickets: r.TotalTickets,
	}
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type WinnerRequest struct {
	TicketID int64 `json:"ticket_id" binding:"required"`
}

type TicketIDsRequest struct {
	TicketIDs []int64 `json:"ticket_ids"`
}

type CustomerInput struct {
	FullName    string  `json:"full_name"`
	Email       *string `json:"email"`
	PhonePrefix *string `json:"phone_prefix"`
	PhoneNumber *string `json:"phone_number"`
}

type CreateOrderRequest struct {
	CartID        string               `json:"cart_id" binding:"required,uuid"`
	TicketIDs     []int64              `json:"ticket_ids"`
	Customer      CustomerInput        `json:"customer"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type CommentRequest struct {
	Comment string `json:"comment"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type RaffleResponse struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Status            string     `json:"status"`
	TotalTickets      int        `json:"total_tickets"`
	FirstTicketNumber int        `json:"first_ticket_number"`
	TicketPrice       string     `json:"ticket_price"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           time.Time  `json:"end_date"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CompletionReason  *string    `json:"completion_reason,omitempty"`
	WinningTicketID   *int64     `json:"winning_ticket_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toRaffleResponse(r *domain.Raffle) RaffleResponse {
	out := RaffleResponse{
		ID:                r.ID,
		Title:             r.Title,
		Description:       r.Description,
		Status:            string(r.Status),
		TotalTickets:      r.TotalTickets,
		FirstTicketNumber: r.FirstTicketNumber,
		TicketPrice:       money(r.TicketPrice),
		StartDate:         r.StartDate,
		EndDate:           r.EndDate,
		CompletedAt:       r.CompletedAt,
		WinningTicketID:   r.WinningTicketID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.CompletionReason != nil {
		reason := string(*r.CompletionReason)
		out.CompletionReason = &reason
	}
	return out
}

type StatisticsResponse struct {
	RaffleID          int64      `json:"raffle_id"`
	AvailableTickets  int        `json:"available_tickets"`
	SoldTickets       int        `json:"sold_tickets"`
	PendingOrders     int        `json:"pending_orders"`
	CompletedOrders   int        `json:"completed_orders"`
	CancelledOrders   int        `json:"cancelled_orders"`
	UnpaidOrders      int        `json:"unpaid_orders"`
	RefundedOrders    int        `json:"refunded_orders"`
	TotalOrders       int        `json:"total_orders"`
	Participants      int        `json:"participants"`
	Revenue           string     `json:"revenue"`
	AverageOrderValue string     `json:"average_order_value"`
	FirstSaleDate     *time.Time `json:"first_sale_date,omitempty"`
	LastSaleDate      *time.Time `json:"last_sale_date,omitempty"`
}

func toStatisticsResponse(s *domain.RaffleStatistics) StatisticsResponse {
	return StatisticsResponse{
		RaffleID:          s.RaffleID,
		AvailableTickets:  s.AvailableTickets,
		SoldTickets:       s.SoldTickets,
		PendingOrders:     s.PendingOrders,
		CompletedOrders:   s.CompletedOrders,
		CancelledOrders:   s.CancelledOrders,
		UnpaidOrders:      s.UnpaidOrders,
		RefundedOrders:    s.RefundedOrders,
		TotalOrders:       s.TotalOrders,
		Participants:      s.Participants,
		Revenue:           money(s.Revenue),
		AverageOrderValue: money(s.AverageOrderValue),
		FirstSaleDate:     s.FirstSaleDate,
		LastSaleDate:      s.LastSaleDate,
	}
}

type RaffleSummaryResponse struct {
	Raffle          RaffleResponse     `json:"raffle"`
	Statistics      StatisticsResponse `json:"statistics"`
	ReservedTickets int                `json:"reserved_tickets"`
}

type CartResponse struct {
	ID        string    `json:"id"`
	RaffleID  int64     `json:"raffle_id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toCartResponse(c *domain.Cart) CartResponse {
	return CartResponse{
		ID:        c.ID.String(),
		RaffleID:  c.RaffleID,
		Status:    string(c.Status),
		ExpiresAt: c.ExpiresAt,
	}
}

type TicketResponse struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

func toTicketResponses(tickets []*domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketResponse{ID: t.ID, Number: t.Number, Status: string(t.Status)})
	}
	return out
}

type OrderItemResponse struct {
	TicketID     int64  `json:"ticket_id"`
	TicketNumber string `json:"ticket_number"`
	Price        string `json:"price"`
}

type CustomerResponse struct {
	ID          int64   `json:"id"`
	FullName    string  `json:"full_name"`
	Email       *string `json:"email,omitempty"`
	PhonePrefix *string `json:"phone_prefix,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	Reference     string              `json:"reference"`
	RaffleID      int64               `json:"raffle_id"`
	CustomerID    int64               `json:"customer_id"`
	Status        string              `json:"status"`
	Comment       *string             `json:"comment,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	Total         string              `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	Customer      *CustomerResponse   `json:"customer,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	UnpaidAt      *time.Time          `json:"unpaid_at,omitempty"`
	RefundedAt    *time.Time          `json:"refunded_at,omitempty"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	out := OrderResponse{
		ID:            o.ID.String(),
		Reference:     o.Reference,
		RaffleID:      o.RaffleID,
		CustomerID:    o.CustomerID,
		Status:        string(o.Status),
		Comment:       o.Comment,
		Items:         make([]OrderItemResponse, 0, len(o.Items)),
		Total:         money(o.Payment.Total),
		PaymentMethod: string(o.Payment.Method),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		CompletedAt:   o.CompletedAt,
		CancelledAt:   o.CancelledAt,
		UnpaidAt:      o.UnpaidAt,
		RefundedAt:    o.RefundedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, OrderItemResponse{
			TicketID:     it.TicketID,
			TicketNumber: it.TicketNumber,
			Price:        money(it.PriceAtPurchase),
		})
	}
	return out
}

func toOrderWithCustomerResponse(oc *domain.OrderWithCustomer) OrderResponse {
	out := toOrderResponse(&oc.Order)
	c := oc.Customer
	out.Customer = &CustomerResponse{
		ID:          c.ID,
		FullName:    c.FullName,
		Email:       c.Email,
		PhonePrefix: c.PhonePrefix,
		PhoneNumber: c.PhoneNumber,
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
