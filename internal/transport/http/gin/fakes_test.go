package httpgin

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
	redisrepo "github.com/kirinyoku/raffle-go/internal/repository/redis"
	"github.com/kirinyoku/raffle-go/internal/service/orders"
)

type fakeRaffles struct {
	create       func(d lifecycle.RaffleDraft) (*domain.Raffle, error)
	edit         func(id int64, e lifecycle.RaffleEdit) (*domain.Raffle, error)
	updateStatus func(id int64, to domain.RaffleStatus) (*domain.Raffle, error)
	winner       func(id, ticketID int64) (*domain.Raffle, error)
	del          func(id int64) error
}

func (f *fakeRaffles) Create(_ context.Context, d lifecycle.RaffleDraft) (*domain.Raffle, error) {
	return f.create(d)
}

func (f *fakeRaffles) Edit(_ context.Context, id int64, e lifecycle.RaffleEdit) (*domain.Raffle, error) {
	return f.edit(id, e)
}

func (f *fakeRaffles) UpdateStatus(_ context.Context, id int64, to domain.RaffleStatus) (*domain.Raffle, error) {
	return f.updateStatus(id, to)
}

func (f *fakeRaffles) RecordWinner(_ context.Context, id, ticketID int64) (*domain.Raffle, error) {
	return f.winner(id, ticketID)
}

func (f *fakeRaffles) Delete(_ context.Context, id int64) error {
	return f.del(id)
}

type fakeCarts struct {
	open   func(raffleID int64) (*domain.Cart, error)
	add    func(id uuid.UUID, ids []int64) ([]*domain.Ticket, error)
	remove func(id uuid.UUID, ids []int64) error
}

func (f *fakeCarts) Open(_ context.Context, raffleID int64) (*domain.Cart, error) {
	return f.open(raffleID)
}

func (f *fakeCarts) AddTickets(_ context.Context, id uuid.UUID, ids []int64) ([]*domain.Ticket, error) {
	return f.add(id, ids)
}

func (f *fakeCarts) RemoveTickets(_ context.Context, id uuid.UUID, ids []int64) error {
	return f.remove(id, ids)
}

type fakeOrders struct {
	mu           sync.Mutex
	created      int
	create       func(in orders.CreateInput) (*domain.Order, error)
	updateStatus func(id uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
	setComment   func(id uuid.UUID, text string) (*domain.Order, error)
}

func (f *fakeOrders) Create(_ context.Context, in orders.CreateInput) (*domain.Order, error) {
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	return f.create(in)
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	return f.updateStatus(id, to)
}

func (f *fakeOrders) SetComment(_ context.Context, id uuid.UUID, text string) (*domain.Order, error) {
	return f.setComment(id, text)
}

func (f *fakeOrders) RemoveComment(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	return &domain.Order{ID: id, Status: domain.OrderPending}, nil
}

type fakeQuery struct {
	summary func(id int64) (*domain.RaffleSummary, error)
	stats   func(id int64) (*domain.RaffleStatistics, error)
	order   func(id uuid.UUID) (*domain.OrderWithCustomer, error)
}

func (f *fakeQuery) RaffleSummary(_ context.Context, id int64) (*domain.RaffleSummary, error) {
	return f.summary(id)
}

func (f *fakeQuery) Statistics(_ context.Context, id int64) (*domain.RaffleStatistics, error) {
	return f.stats(id)
}

func (f *fakeQuery) Order(_ context.Context, id uuid.UUID) (*domain.OrderWithCustomer, error) {
	return f.order(id)
}

// memIdem mimics the redis store: a LOCK placeholder, then the result.
type memIdem struct {
	mu     sync.Mutex
	locks  map[string]bool
	result map[string]string
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, result: map[string]string{}}
}

func (m *memIdem) GetResult(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.result[key]
	return v, ok, nil
}

func (m *memIdem) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *memIdem) SaveResult(_ context.Context, key string, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result[key] = payload
	return nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

type fixedLimiter struct {
	allow bool
	retry time.Duration
}

func (l fixedLimiter) Allow(context.Context, string) (redisrepo.Decision, error) {
	return redisrepo.Decision{Allowed: l.allow, Hits: 1, RetryAfter: l.retry}, nil
}
