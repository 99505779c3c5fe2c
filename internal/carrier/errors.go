package carrier

import "errors"

var (
	// ErrCarrierAPI is returned when the carrier responded with an error payload.
	ErrCarrierAPI = errors.New("carrier: api error")
	// ErrCarrierNetwork is returned on transport failures, including timeouts.
	ErrCarrierNetwork = errors.New("carrier: network failure")
	// ErrCarrierUnavailable is returned instead of a synthetic result when the
	// fallback is disabled for a deployment.
	ErrCarrierUnavailable = errors.New("carrier: unavailable and fallback disabled")
	// ErrUnsupportedCarrier is returned for an explicit hint that matches no
	// configured adapter. A bad hint is a caller mistake, never a silent
	// fallback to auto-detection.
	ErrUnsupportedCarrier = errors.New("carrier: unsupported carrier")
	// ErrCarrierUndetermined is returned when no adapter claims the number.
	ErrCarrierUndetermined = errors.New("carrier: could not determine carrier")
)
