package lifecycle

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/raffle-go/internal/domain"
)

// TestRandomOperationsKeepInvariants drives a raffle through seeded random
// operations. Every failed operation must leave the state untouched.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	t.Parallel()

	for seed := uint64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		f := newFixture(t, 12, "3.25")

		var carts []*domain.Cart

		for step := 0; step < 300; step++ {
			before := f.snapshot()
			var err error

			switch rng.IntN(6) {
			case 0, 1:
				var ids []int64
				for _, tk := range f.tickets {
					if tk.Status == domain.TicketAvailable && rng.IntN(3) == 0 {
						ids = append(ids, tk.ID)
					}
				}
				_, err = f.tryPlace(ids...)
			case 2, 3:
				if len(f.orders) == 0 {
					continue
				}
				o := f.orders[rng.IntN(len(f.orders))]
				_, err = f.transition(o, allOrderStatuses[rng.IntN(len(allOrderStatuses))])
			case 4:
				to := allRaffleStatuses[rng.IntN(len(allRaffleStatuses))]
				err = ChangeRaffleStatus(f.raffle, *f.stats, to, now)
			case 5:
				if len(carts) > 0 && rng.IntN(2) == 0 {
					c := carts[rng.IntN(len(carts))]
					ExpireCart(c, f.tickets, f.stats, c.ExpiresAt.Add(time.Second))
					break
				}
				cart, openErr := OpenCart(f.raffle, uuid.New(), time.Minute, now)
				if openErr != nil {
					err = openErr
					break
				}
				var picked []*domain.Ticket
				for _, tk := range f.tickets {
					if tk.Status == domain.TicketAvailable && rng.IntN(4) == 0 {
						picked = append(picked, tk)
					}
				}
				if err = AddToCart(&cart, f.raffle, picked, f.stats, now); err == nil {
					carts = append(carts, &cart)
				}
			}

			if err != nil {
				require.Equal(t, before, f.snapshot(), "seed %d step %d: %v", seed, step, err)
			}
			f.requireConsistent(t)
		}
	}
}
