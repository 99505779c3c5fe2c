package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/miniapp-shop/internal/obs"
	"github.com/noah-isme/miniapp-shop/internal/resilience"
)

// JNEConfig carries the credentials and endpoint for the JNE tracking API.
// Secrets are injected here rather than read from ambient environment state
// so tests can supply fake credentials.
type JNEConfig struct {
	AppKey    string
	AppSecret string
	BaseURL   string
	TrackPath string
	Timeout   time.Duration
	// DisableFallback makes Track surface ErrCarrierUnavailable instead of a
	// synthetic result. The default deployment always falls back.
	DisableFallback bool
	HTTP            *http.Client
	Breaker         *resilience.Breaker
	Logger          zerolog.Logger
	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// JNE is the adapter for the regional courier. It is stateless apart from
// its configuration and safe for concurrent use.
type JNE struct {
	cfg  JNEConfig
	http resilience.HTTPClient
	now  func() time.Time
}

// NewJNE constructs the adapter.
func NewJNE(cfg JNEConfig) *JNE {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TrackPath == "" {
		cfg.TrackPath = "/api/track"
	}
	client := cfg.HTTP
	if client == nil {
		client = &http.Client{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &JNE{
		cfg: cfg,
		http: resilience.HTTPClient{
			Client:      client,
			Breaker:     cfg.Breaker,
			MaxAttempts: 2,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     cfg.Timeout,
		},
		now: now,
	}
}

// ID implements Adapter.
func (a *JNE) ID() ID { return JNEID }

// DisplayName implements Adapter.
func (a *JNE) DisplayName() string { return "JNE Express" }

// Aliases implements Adapter.
func (a *JNE) Aliases() []string {
	return []string{"jne", "jne express", "jalur nugraha ekakurir"}
}

// Matches implements Adapter using the JNE format heuristic.
func (a *JNE) Matches(trackingNumber string) bool {
	return IsJNEFormat(trackingNumber)
}

// GenerateTrackingNumber returns a fresh 15-digit airway bill. Every number
// this produces passes Matches, closing the generate/validate loop.
func (a *JNE) GenerateTrackingNumber() string {
	return fmt.Sprintf("%013d%02d", a.now().UnixMilli(), rand.Intn(100))
}

// Track fetches live tracking data, degrading to a synthetic history when
// the carrier cannot be reached or answers with an error.
func (a *JNE) Track(ctx context.Context, trackingNumber string) (Result, error) {
	ctx, span := otel.Tracer("carrier.JNE").Start(ctx, "JNE.Track")
	defer span.End()
	span.SetAttributes(attribute.String("carrier.tracking_number", trackingNumber))

	result, err := a.fetchLive(ctx, trackingNumber)
	if err == nil {
		recordTrack(JNEID, SourceLive, "success")
		return result, nil
	}
	span.RecordError(err)

	if a.cfg.DisableFallback {
		recordTrack(JNEID, SourceLive, "error")
		return Result{}, fmt.Errorf("%w: %w", ErrCarrierUnavailable, err)
	}
	a.cfg.Logger.Warn().
		Err(err).
		Str("tracking_number", trackingNumber).
		Msg("carrier unreachable, serving synthetic tracking history")
	recordTrack(JNEID, SourceSynthetic, "fallback")
	return a.synthetic(trackingNumber), nil
}

func (a *JNE) fetchLive(ctx context.Context, trackingNumber string) (Result, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(a.cfg.BaseURL), "/")
	if endpoint == "" {
		return Result{}, fmt.Errorf("%w: no endpoint configured", ErrCarrierNetwork)
	}

	params := map[string]string{
		"app_key":         a.cfg.AppKey,
		"tracking_number": trackingNumber,
		"timestamp":       a.now().UTC().Format(time.RFC3339),
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("sign", SignParams(params, a.cfg.AppSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+a.cfg.TrackPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCarrierNetwork, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.http.Do(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCarrierNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: unexpected status %s", ErrCarrierAPI, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCarrierNetwork, err)
	}
	return a.parse(trackingNumber, body)
}

// trackResponse mirrors the carrier's field names.
type trackResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Result  struct {
		Number       string `json:"number"`
		Status       string `json:"status"`
		DeliveryTime string `json:"deliverytime"`
		List         []struct {
			Status   string `json:"status"`
			Time     string `json:"time"`
			Location string `json:"location"`
			Context  string `json:"context"`
		} `json:"list"`
	} `json:"result"`
}

func (a *JNE) parse(trackingNumber string, body []byte) (Result, error) {
	var payload trackResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %w", ErrCarrierAPI, err)
	}
	if !payload.Success {
		reason := payload.Reason
		if reason == "" {
			reason = "carrier rejected the query"
		}
		return Result{}, fmt.Errorf("%w: %s", ErrCarrierAPI, reason)
	}

	result := Result{
		TrackingNumber: orDefault(payload.Result.Number, trackingNumber),
		Carrier:        JNEID,
		CarrierName:    a.DisplayName(),
		Status:         orDefault(payload.Result.Status, "Unknown"),
		Source:         SourceLive,
		Events:         make([]Event, 0, len(payload.Result.List)),
	}
	if eta, err := time.Parse(time.RFC3339, payload.Result.DeliveryTime); err == nil {
		result.EstimatedDelivery = &eta
	}
	for _, item := range payload.Result.List {
		result.Events = append(result.Events, Event{
			Status:      orDefault(item.Status, "Unknown"),
			Timestamp:   item.Time,
			Location:    item.Location,
			Description: item.Context,
		})
	}
	return result, nil
}

// synthetic builds a plausible multi-event history anchored on the current
// time. The Source field is the machine-checkable marker; the descriptions
// are only for humans.
func (a *JNE) synthetic(trackingNumber string) Result {
	now := a.now()
	eta := now.Add(72 * time.Hour)
	timeline := []struct {
		offset      time.Duration
		status      string
		location    string
		description string
	}{
		{-48 * time.Hour, "ORDER_PLACED", "Jakarta", "Shipment information received by JNE"},
		{-36 * time.Hour, "PICKED_UP", "Jakarta Gateway", "Package picked up by courier"},
		{-24 * time.Hour, "IN_TRANSIT", "Cikarang Sorting Center", "Package departed sorting facility"},
		{-12 * time.Hour, "OUT_FOR_DELIVERY", "Destination City", "Package is out for delivery"},
	}
	events := make([]Event, 0, len(timeline))
	for _, step := range timeline {
		events = append(events, Event{
			Status:      step.status,
			Timestamp:   now.Add(step.offset).UTC().Format(time.RFC3339),
			Location:    step.location,
			Description: step.description,
		})
	}
	return Result{
		TrackingNumber:    trackingNumber,
		Carrier:           JNEID,
		CarrierName:       a.DisplayName(),
		Status:            "OUT_FOR_DELIVERY",
		EstimatedDelivery: &eta,
		Source:            SourceSynthetic,
		Events:            events,
	}
}

func recordTrack(id ID, source Source, result string) {
	if obs.CarrierTrackTotal != nil {
		obs.CarrierTrackTotal.WithLabelValues(string(id), string(source), result).Inc()
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
