package raffles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/raffle-go/internal/domain"
	"github.com/kirinyoku/raffle-go/internal/lifecycle"
)

type recordingWriter struct {
	calls   []string
	minted  []string
	removed int
	raffle  domain.Raffle
	failOn  string
}

func (w *recordingWriter) record(call string) error {
	w.calls = append(w.calls, call)
	if call == w.failOn {
		return errors.New(call + " failed")
	}
	return nil
}

func (w *recordingWriter) MintTickets(_ context.Context, _ int64, numbers []string) error {
	w.minted = numbers
	return w.record("mint")
}

func (w *recordingWriter) RemoveTickets(_ context.Context, _ int64, n int) error {
	w.removed = n
	return w.record("remove")
}

func (w *recordingWriter) UpdateRaffle(_ context.Context, r *domain.Raffle) error {
	w.raffle = *r
	return w.record("raffle")
}

func (w *recordingWriter) UpdateStatistics(context.Context, *domain.RaffleStatistics) error {
	return w.record("stats")
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func endedRaffle() *domain.Raffle {
	at := testNow.Add(-time.Hour)
	reason := domain.CompletionEndDateReached
	return &domain.Raffle{
		ID:               3,
		Status:           domain.RaffleCompleted,
		TotalTickets:     3,
		EndDate:          at,
		CompletedAt:      &at,
		CompletionReason: &reason,
	}
}

func TestTooCloseEndDateOnEndedRaffleIsPersistedThenReported(t *testing.T) {
	t.Parallel()

	r := endedRaffle()
	stats := lifecycle.NewStatistics(r.ID, 3)
	newEnd := testNow.Add(lifecycle.MinRunway)

	plan, err := lifecycle.ApplyRaffleEdit(r, &stats, lifecycle.RaffleEdit{EndDate: &newEnd}, lifecycle.EditFacts{}, testNow)
	require.NoError(t, err)
	require.Error(t, plan.Deferred)

	w := &recordingWriter{}
	require.NoError(t, writeEdit(t.Context(), w, r, &stats, plan))
	require.Equal(t, []string{"raffle", "stats"}, w.calls)
	require.Equal(t, newEnd, w.raffle.EndDate)
	require.Equal(t, domain.RaffleCompleted, w.raffle.Status)

	got, err := editOutcome("service.raffles.Edit", r, nil, plan.Deferred)
	require.ErrorIs(t, err, lifecycle.ErrValidation)
	require.Same(t, r, got)
	require.Equal(t, newEnd, got.EndDate)
}

func TestEditOutcome(t *testing.T) {
	t.Parallel()

	r := &domain.Raffle{ID: 1}

	got, err := editOutcome("op", r, nil, nil)
	require.NoError(t, err)
	require.Same(t, r, got)

	boom := errors.New("boom")
	got, err = editOutcome("op", r, boom, nil)
	require.ErrorIs(t, err, boom)
	require.Nil(t, got)
}

func TestWriteEditResizesInventory(t *testing.T) {
	t.Parallel()

	r := &domain.Raffle{ID: 4}
	stats := lifecycle.NewStatistics(r.ID, 3)

	w := &recordingWriter{}
	plan := lifecycle.EditPlan{MintNumbers: []string{"4", "5"}}
	require.NoError(t, writeEdit(t.Context(), w, r, &stats, plan))
	require.Equal(t, []string{"mint", "raffle", "stats"}, w.calls)
	require.Equal(t, []string{"4", "5"}, w.minted)

	w = &recordingWriter{}
	require.NoError(t, writeEdit(t.Context(), w, r, &stats, lifecycle.EditPlan{RemoveCount: 2}))
	require.Equal(t, []string{"remove", "raffle", "stats"}, w.calls)
	require.Equal(t, 2, w.removed)

	w = &recordingWriter{failOn: "remove"}
	require.Error(t, writeEdit(t.Context(), w, r, &stats, lifecycle.EditPlan{RemoveCount: 1}))
	require.Equal(t, []string{"remove"}, w.calls)
}
