package order_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/order"
)

func TestRankHappyPathIsMonotonic(t *testing.T) {
	t.Parallel()
	path := []order.Status{
		order.StatusPendingPayment,
		order.StatusPaid,
		order.StatusShipped,
		order.StatusDelivered,
	}
	for i := 1; i < len(path); i++ {
		require.Greater(t, order.Rank(path[i]), order.Rank(path[i-1]),
			"%s must rank above %s", path[i], path[i-1])
	}
}

func TestRankTerminalSideStates(t *testing.T) {
	t.Parallel()
	require.Equal(t, -1, order.Rank(order.StatusCanceled))
	require.Equal(t, -1, order.Rank(order.StatusPaymentFailed))
	require.Less(t, order.Rank(order.Status("BOGUS")), -1)
}

func TestNewNumberFormat(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	pattern := regexp.MustCompile(`^MS-20240501-123045-\d{4}$`)
	for i := 0; i < 20; i++ {
		require.Regexp(t, pattern, order.NewNumber(now))
	}
}
