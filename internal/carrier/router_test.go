package carrier_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/carrier"
)

type stubAdapter struct {
	id      carrier.ID
	name    string
	aliases []string
	match   func(string) bool
	tracked []string
}

func (s *stubAdapter) ID() carrier.ID      { return s.id }
func (s *stubAdapter) DisplayName() string { return s.name }
func (s *stubAdapter) Aliases() []string   { return s.aliases }
func (s *stubAdapter) Matches(n string) bool {
	if s.match == nil {
		return false
	}
	return s.match(n)
}
func (s *stubAdapter) GenerateTrackingNumber() string { return "123456789012" }
func (s *stubAdapter) Track(_ context.Context, n string) (carrier.Result, error) {
	s.tracked = append(s.tracked, n)
	return carrier.Result{TrackingNumber: n, Carrier: s.id, Source: carrier.SourceLive}, nil
}

func TestResolveAliasesCaseInsensitive(t *testing.T) {
	t.Parallel()

	jne := carrier.NewJNE(carrier.JNEConfig{})
	router := carrier.NewRouter(jne)

	for _, hint := range []string{"jne", "JNE", "Jne Express", "JALUR NUGRAHA EKAKURIR", "  jne  "} {
		adapter, err := router.Resolve(hint)
		require.NoError(t, err, "hint %q", hint)
		require.Equal(t, carrier.JNEID, adapter.ID())
	}
}

func TestResolveUnknownHintIsHardError(t *testing.T) {
	t.Parallel()

	router := carrier.NewRouter(carrier.NewJNE(carrier.JNEConfig{}))
	_, err := router.Resolve("sicepat")
	require.ErrorIs(t, err, carrier.ErrUnsupportedCarrier)

	_, err = router.Resolve("")
	require.ErrorIs(t, err, carrier.ErrUnsupportedCarrier)
}

func TestDetectPriorityOrder(t *testing.T) {
	t.Parallel()

	greedy := &stubAdapter{id: "greedy", name: "Greedy", match: func(string) bool { return true }}
	second := &stubAdapter{id: "second", name: "Second", match: func(string) bool { return true }}
	router := carrier.NewRouter(greedy, second)

	adapter, ok := router.Detect("anything")
	require.True(t, ok)
	require.Equal(t, carrier.ID("greedy"), adapter.ID())
	require.Equal(t, carrier.ID("greedy"), router.Primary().ID())
}

func TestTrackUndeterminedWhenNoMatch(t *testing.T) {
	t.Parallel()

	router := carrier.NewRouter(carrier.NewJNE(carrier.JNEConfig{}))
	_, err := router.Track(context.Background(), "not-a-number", "")
	require.ErrorIs(t, err, carrier.ErrCarrierUndetermined)
}

func TestTrackExplicitHintSkipsDetection(t *testing.T) {
	t.Parallel()

	// The stub rejects every number, but the explicit hint routes to it anyway.
	stub := &stubAdapter{id: "stub", name: "Stub Courier", aliases: []string{"sc"}}
	router := carrier.NewRouter(stub)

	result, err := router.Track(context.Background(), "weird-format", "sc")
	require.NoError(t, err)
	require.Equal(t, carrier.ID("stub"), result.Carrier)
	require.Equal(t, []string{"weird-format"}, stub.tracked)
}

func TestValidateNeverErrors(t *testing.T) {
	t.Parallel()

	router := carrier.NewRouter(carrier.NewJNE(carrier.JNEConfig{}))

	ok, id := router.Validate("123456789012")
	require.True(t, ok)
	require.Equal(t, carrier.JNEID, id)

	ok, id = router.Validate("")
	require.False(t, ok)
	require.Equal(t, carrier.ID(""), id)

	ok, _ = router.Validate("abcdef")
	require.False(t, ok)
}

func TestRouterTrackEndToEndFallback(t *testing.T) {
	t.Parallel()

	jne := carrier.NewJNE(carrier.JNEConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})
	router := carrier.NewRouter(jne)

	result, err := router.Track(context.Background(), "999888777666555", "")
	require.NoError(t, err)
	require.Equal(t, carrier.SourceSynthetic, result.Source)
	require.GreaterOrEqual(t, len(result.Events), 4)
}
