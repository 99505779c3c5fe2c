package carrier

import (
	"context"
	"time"
)

// ID identifies a supported carrier.
type ID string

// JNEID is the regional courier currently integrated.
const JNEID ID = "jne"

// Source distinguishes genuine carrier data from synthesised fallback data.
type Source string

const (
	// SourceLive marks a result parsed from a real carrier response.
	SourceLive Source = "live"
	// SourceSynthetic marks a fallback result fabricated locally. Callers can
	// use it to surface a "live tracking unavailable" notice; string-matching
	// descriptions is never required.
	SourceSynthetic Source = "synthetic"
)

// Event is a single normalised tracking event. Fields are never empty
// strings turned into nulls: absent carrier data becomes "" or "Unknown".
type Event struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"` // RFC3339
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Result is the normalised tracking payload returned to callers. Events are
// ordered oldest first, exactly as received; repeated calls may return a
// different synthetic sequence when falling back.
type Result struct {
	TrackingNumber    string     `json:"trackingNumber"`
	Carrier           ID         `json:"carrier"`
	CarrierName       string     `json:"carrierName"`
	Status            string     `json:"status"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	Source            Source     `json:"source"`
	Events            []Event    `json:"events"`
}

// Adapter encapsulates one carrier's request signing, response parsing and
// fallback behaviour. Implementations hold only static configuration and are
// safe for concurrent use.
type Adapter interface {
	ID() ID
	DisplayName() string
	// Aliases returns the hint spellings that resolve to this adapter,
	// matched case-insensitively by the Router.
	Aliases() []string
	// Matches reports whether the tracking number plausibly belongs to this
	// carrier. It is a format heuristic, not a checksum, and never errors.
	Matches(trackingNumber string) bool
	Track(ctx context.Context, trackingNumber string) (Result, error)
	// GenerateTrackingNumber produces a fresh number that Matches accepts.
	GenerateTrackingNumber() string
}
