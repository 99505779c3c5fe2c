package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
)

func TestSignParamsKnownVector(t *testing.T) {
	t.Parallel()

	// md5("a=1&b=2s"), upper hex.
	got := carrier.SignParams(map[string]string{"b": "2", "a": "1"}, "s")
	require.Equal(t, "48EDE480F182F325DB2C33F8D705C464", got)
}

func TestSignParamsRequestShape(t *testing.T) {
	t.Parallel()

	// md5("app_key=key&timestamp=2024-05-01T00:00:00Z&tracking_number=123456789012secret")
	got := carrier.SignParams(map[string]string{
		"tracking_number": "123456789012",
		"app_key":         "key",
		"timestamp":       "2024-05-01T00:00:00Z",
	}, "secret")
	require.Equal(t, "AB674C1A273FE7DA610EA3042443F5E6", got)
}

func TestSignParamsKeyOrderIndependent(t *testing.T) {
	t.Parallel()

	a := carrier.SignParams(map[string]string{"x": "1", "y": "2", "z": "3"}, "sec")
	b := carrier.SignParams(map[string]string{"z": "3", "x": "1", "y": "2"}, "sec")
	require.Equal(t, a, b)
}

func TestSignParamsSecretChangesSignature(t *testing.T) {
	t.Parallel()

	params := map[string]string{"k": "v"}
	require.NotEqual(t, carrier.SignParams(params, "one"), carrier.SignParams(params, "two"))
}
