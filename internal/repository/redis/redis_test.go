package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("0b0c3c1e-8a43-4a43-9a7e-6f1d0e5b8a10")

	require.Equal(t, "rafflego:v1:raffle:7:summary", KeyRaffleSummary(7))
	require.Equal(t, "rafflego:v1:raffle:7:statistics", KeyRaffleStatistics(7))
	require.Equal(t, "rafflego:v1:order:0b0c3c1e-8a43-4a43-9a7e-6f1d0e5b8a10", KeyOrder(id))
	require.Equal(t, "rafflego:v1:idem:orders:abc", KeyIdemOrder("abc"))
	require.Equal(t, "rafflego:v1:rl:carts", KeyRateLimit("carts"))
	require.Equal(t, "rafflego:v1:raffles:changed", ChannelRafflesChanged())
}

func TestRaffleChangedMessage(t *testing.T) {
	t.Parallel()

	b := encodeRaffleChanged(42, "ACTIVE", time.Unix(1700000000, 0))
	require.JSONEq(t, `{"type":"raffle_changed","raffle_id":42,"status":"ACTIVE","ts_unix":1700000000}`, string(b))

	id, ok := decodeRaffleChanged(string(b))
	require.True(t, ok)
	require.Equal(t, int64(42), id)

	_, ok = decodeRaffleChanged(`{"type":"raffle_changed"}`)
	require.False(t, ok)
	_, ok = decodeRaffleChanged(`not json`)
	require.False(t, ok)
}

func TestParseIdemValue(t *testing.T) {
	t.Parallel()

	payload, ok, err := parseIdemValue(`RES:{"id":1}`)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"id":1}`, payload)

	_, ok, err = parseIdemValue("LOCK")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecodeDecision(t *testing.T) {
	t.Parallel()

	d, err := decodeDecision([]int64{0, 20, 1500})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, int64(20), d.Hits)
	require.Equal(t, 1500*time.Millisecond, d.RetryAfter)

	d, err = decodeDecision([]int64{1, 3, 0})
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Zero(t, d.RetryAfter)

	_, err = decodeDecision([]int64{1})
	require.Error(t, err)
}

func TestGetOrSetJSONWithoutCache(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := GetOrSetJSON(t.Context(), nil, "k", time.Minute, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = GetOrSetJSON(t.Context(), nil, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
}
