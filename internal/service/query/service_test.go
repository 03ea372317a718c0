package query

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	svc := New(nil, nil, nil, Config{OrderTTL: time.Minute})
	require.Equal(t, 60*time.Second, svc.cfg.RaffleSummaryTTL)
	require.Equal(t, 15*time.Second, svc.cfg.StatisticsTTL)
	require.Equal(t, time.Minute, svc.cfg.OrderTTL)
}

func TestSnapshotIsReadOnly(t *testing.T) {
	t.Parallel()

	require.Equal(t, pgx.ReadOnly, snapshotTx.AccessMode)
	require.Equal(t, pgx.RepeatableRead, snapshotTx.IsoLevel)
}
