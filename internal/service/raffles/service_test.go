package raffles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	local := time.FixedZone("UTC-3", -3*60*60)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, local)

	svc := New(nil, nil, nil, Config{Now: func() time.Time { return at }})
	require.Equal(t, 100, svc.cfg.SweepBatch)
	require.NotNil(t, svc.log)
	require.Equal(t, time.UTC, svc.now().Location())
	require.True(t, svc.now().Equal(at))

	svc = New(nil, nil, nil, Config{SweepBatch: 5})
	require.Equal(t, 5, svc.cfg.SweepBatch)
}
