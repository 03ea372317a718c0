package carts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniqueIDs(t *testing.T) {
	t.Parallel()

	in := []int64{5, 1, 5, 3, 1}
	require.Equal(t, []int64{1, 3, 5}, uniqueIDs(in))
	require.Equal(t, []int64{5, 1, 5, 3, 1}, in)
	require.Empty(t, uniqueIDs(nil))
}
