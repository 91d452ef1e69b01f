package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChangedAt_BackdatesBySkew(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 10, 987654321, time.UTC)
	got := ChangedAt(now, 5*time.Second)

	require.Equal(t, time.Date(2025, 3, 1, 12, 0, 5, 987000000, time.UTC), got)
}

func TestChangedAt_TokenIssuedRightAfterChangeIsNewer(t *testing.T) {
	t.Parallel()

	// iat в JWT хранится в секундах (усечение вниз), поэтому сдвиг не меньше 1s.
	for _, skew := range []time.Duration{time.Second, 5 * time.Second} {
		for _, ns := range []int{0, 700000000, 999000000} {
			now := time.Date(2025, 3, 1, 12, 0, 10, ns, time.UTC)
			iat := now.Truncate(time.Second)

			require.True(t, iat.After(ChangedAt(now, skew)), "skew=%s now=%s", skew, now)
		}
	}

	now := time.Date(2025, 3, 1, 12, 0, 10, 700000000, time.UTC)
	require.False(t, now.Truncate(time.Second).After(ChangedAt(now, 500*time.Millisecond)))
}

func TestChangedAt_ZeroSkew(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2025, 3, 1, 15, 0, 0, 0, loc)

	got := ChangedAt(now, 0)
	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.Equal(now))
}
