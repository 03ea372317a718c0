package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

func validDraft() RaffleDraft {
	start := now.Add(time.Hour)
	return RaffleDraft{
		Title:             " Charity raffle ",
		TotalTickets:      3,
		FirstTicketNumber: 100,
		TicketPrice:       dec("2.00"),
		StartDate:         &start,
		EndDate:           start.Add(MinRunway),
	}
}

func TestNewRaffle(t *testing.T) {
	t.Parallel()

	r, numbers, err := NewRaffle(validDraft(), now)
	require.NoError(t, err)
	require.Equal(t, domain.RafflePending, r.Status)
	require.Equal(t, "Charity raffle", r.Title)
	require.Equal(t, []string{"100", "101", "102"}, numbers)
	require.Equal(t, now, r.CreatedAt)
}

func TestNewRaffleValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(d *RaffleDraft)
		field  string
	}{
		{"title", func(d *RaffleDraft) { d.Title = "" }, "title"},
		{"tickets", func(d *RaffleDraft) { d.TotalTickets = 0 }, "total_tickets"},
		{"first number", func(d *RaffleDraft) { d.FirstTicketNumber = -1 }, "first_ticket_number"},
		{"price", func(d *RaffleDraft) { d.TicketPrice = dec("-1") }, "ticket_price"},
		{"end date", func(d *RaffleDraft) { d.EndDate = d.StartDate.Add(MinRunway - time.Second) }, "end_date"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := validDraft()
			tc.mutate(&d)
			_, _, err := NewRaffle(d, now)

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCanDelete(t *testing.T) {
	t.Parallel()

	require.NoError(t, CanDelete(&domain.Raffle{Status: domain.RafflePending}))
	require.ErrorIs(t, CanDelete(&domain.Raffle{Status: domain.RaffleActive}), ErrForbidden)
}

func TestRecordWinner(t *testing.T) {
	t.Parallel()

	r := completedRaffle(domain.CompletionAllTicketsSold, now)
	sold := &domain.Ticket{ID: 2, RaffleID: r.ID, Status: domain.TicketSold}

	require.ErrorIs(t, RecordWinner(r, &domain.Ticket{ID: 3, RaffleID: r.ID, Status: domain.TicketAvailable}, now), ErrValidation)
	require.ErrorIs(t, RecordWinner(r, &domain.Ticket{ID: 4, RaffleID: r.ID + 1, Status: domain.TicketSold}, now), ErrNotFound)
	require.NoError(t, RecordWinner(r, sold, now))
	require.True(t, r.HasWinner())
	require.Equal(t, int64(2), *r.WinningTicketID)

	active := &domain.Raffle{ID: r.ID, Status: domain.RaffleActive}
	require.ErrorIs(t, RecordWinner(active, sold, now), ErrValidation)
}
