package carrier_test

import (
	"context"
	"crypto/md5" //nolint:gosec // mirrors the carrier's request checksum
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestTrackLiveSuccess(t *testing.T) {
	t.Parallel()

	const secret = "shhh"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/track", r.URL.Path)
		require.NoError(t, r.ParseForm())

		// Re-derive the signature over every field except the signature itself.
		params := map[string]string{}
		for k := range r.PostForm {
			if k == "sign" {
				continue
			}
			params[k] = r.PostForm.Get(k)
		}
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k + "=" + params[k])
		}
		b.WriteString(secret)
		sum := md5.Sum([]byte(b.String())) //nolint:gosec
		require.Equal(t, strings.ToUpper(hex.EncodeToString(sum[:])), r.PostForm.Get("sign"))
		require.Equal(t, "123456789012", r.PostForm.Get("tracking_number"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"number":       "123456789012",
				"status":       "IN_TRANSIT",
				"deliverytime": "2024-05-03T09:00:00Z",
				"list": []map[string]string{
					{"status": "PICKED_UP", "time": "2024-04-30T10:00:00Z", "location": "Jakarta", "context": "picked up"},
					{"status": "", "time": "2024-05-01T08:00:00Z", "location": "", "context": ""},
				},
			},
		})
	}))
	defer srv.Close()

	adapter := carrier.NewJNE(carrier.JNEConfig{
		AppKey:    "key",
		AppSecret: secret,
		BaseURL:   srv.URL,
		Now:       fixedNow,
	})
	result, err := adapter.Track(context.Background(), "123456789012")
	require.NoError(t, err)
	require.Equal(t, carrier.SourceLive, result.Source)
	require.Equal(t, carrier.JNEID, result.Carrier)
	require.Equal(t, "IN_TRANSIT", result.Status)
	require.NotNil(t, result.EstimatedDelivery)
	require.Len(t, result.Events, 2)
	// Absent carrier fields normalise to defaults, never nulls.
	require.Equal(t, "Unknown", result.Events[1].Status)
	require.Equal(t, "", result.Events[1].Location)
}

func TestTrackFallsBackWhenUnreachable(t *testing.T) {
	t.Parallel()

	adapter := carrier.NewJNE(carrier.JNEConfig{
		AppKey:    "key",
		AppSecret: "secret",
		BaseURL:   "http://127.0.0.1:1", // nothing listens here
		Timeout:   200 * time.Millisecond,
		Now:       fixedNow,
	})
	result, err := adapter.Track(context.Background(), "123456789012345")
	require.NoError(t, err)
	require.Equal(t, carrier.SourceSynthetic, result.Source)
	require.Equal(t, "123456789012345", result.TrackingNumber)
	require.GreaterOrEqual(t, len(result.Events), 4)
	require.NotNil(t, result.EstimatedDelivery)
	require.Equal(t, fixedNow().Add(72*time.Hour), *result.EstimatedDelivery)

	// Timeline is anchored on the clock: oldest event 48h back.
	first, err2 := time.Parse(time.RFC3339, result.Events[0].Timestamp)
	require.NoError(t, err2)
	require.Equal(t, fixedNow().Add(-48*time.Hour), first)
}

func TestTrackFallsBackOnCarrierError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "reason": "sign mismatch"})
	}))
	defer srv.Close()

	adapter := carrier.NewJNE(carrier.JNEConfig{BaseURL: srv.URL, Now: fixedNow})
	result, err := adapter.Track(context.Background(), "123456789012")
	require.NoError(t, err)
	require.Equal(t, carrier.SourceSynthetic, result.Source)
}

func TestTrackDisableFallbackSurfacesError(t *testing.T) {
	t.Parallel()

	adapter := carrier.NewJNE(carrier.JNEConfig{
		BaseURL:         "http://127.0.0.1:1",
		Timeout:         200 * time.Millisecond,
		DisableFallback: true,
		Now:             fixedNow,
	})
	_, err := adapter.Track(context.Background(), "123456789012")
	require.Error(t, err)
	require.ErrorIs(t, err, carrier.ErrCarrierUnavailable)
}

func TestSyntheticFreshOnEachCall(t *testing.T) {
	t.Parallel()

	current := fixedNow()
	adapter := carrier.NewJNE(carrier.JNEConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
		Now:     func() time.Time { return current },
	})
	first, err := adapter.Track(context.Background(), "123456789012")
	require.NoError(t, err)

	current = current.Add(6 * time.Hour)
	second, err := adapter.Track(context.Background(), "123456789012")
	require.NoError(t, err)

	require.NotEqual(t, first.Events[0].Timestamp, second.Events[0].Timestamp)
}
