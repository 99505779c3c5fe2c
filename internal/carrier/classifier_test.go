package carrier_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
)

func TestIsJNEFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"twelve digits", "123456789012", true},
		{"fifteen digits", "123456789012345", true},
		{"thirteen digits", "1234567890123", true},
		{"eleven digits", "12345678901", false},
		{"sixteen digits", "1234567890123456", false},
		{"empty", "", false},
		{"letters mixed in", "12345678901a", false},
		{"whitespace", "123456789012 ", false},
		{"unicode digits rejected", "１２３４５６７８９０１２", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, carrier.IsJNEFormat(tc.input))
		})
	}
}

func TestIsJNEFormatBoundaries(t *testing.T) {
	t.Parallel()

	for length := 0; length <= 20; length++ {
		got := carrier.IsJNEFormat(strings.Repeat("7", length))
		want := length >= 12 && length <= 15
		require.Equal(t, want, got, "length %d", length)
	}
}

func TestGeneratedNumbersAlwaysMatch(t *testing.T) {
	t.Parallel()

	adapter := carrier.NewJNE(carrier.JNEConfig{})
	for i := 0; i < 100; i++ {
		n := adapter.GenerateTrackingNumber()
		require.True(t, carrier.IsJNEFormat(n), "generated %q", n)
	}
}
