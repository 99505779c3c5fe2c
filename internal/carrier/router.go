package carrier

import (
	"context"
	"fmt"
	"strings"
)

// Router dispatches tracking queries to the adapter for the right carrier.
//
// Detection runs the adapters' format heuristics in the order they were
// passed to NewRouter; the first match wins. That order is the documented
// priority list for carriers with overlapping numbering schemes, so wire the
// most specific format first when new adapters are added. Relying on map
// iteration order here would make detection nondeterministic.
type Router struct {
	adapters []Adapter
	aliases  map[string]Adapter
}

// NewRouter builds a router over the provided adapters. Argument order is
// the detection priority.
func NewRouter(adapters ...Adapter) *Router {
	r := &Router{
		adapters: adapters,
		aliases:  make(map[string]Adapter),
	}
	for _, a := range adapters {
		r.aliases[strings.ToLower(string(a.ID()))] = a
		r.aliases[strings.ToLower(a.DisplayName())] = a
		for _, alias := range a.Aliases() {
			r.aliases[strings.ToLower(strings.TrimSpace(alias))] = a
		}
	}
	return r
}

// Primary returns the highest-priority adapter. It is the carrier used to
// generate tracking numbers for new shipments.
func (r *Router) Primary() Adapter {
	if len(r.adapters) == 0 {
		return nil
	}
	return r.adapters[0]
}

// Resolve maps an explicit carrier hint onto an adapter, case-insensitively.
// An unknown hint is a hard error, never a fallback to auto-detection.
func (r *Router) Resolve(hint string) (Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(hint))
	if key == "" {
		return nil, fmt.Errorf("%w: empty hint", ErrUnsupportedCarrier)
	}
	adapter, ok := r.aliases[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCarrier, hint)
	}
	return adapter, nil
}

// Detect finds the adapter whose format heuristic claims the number.
func (r *Router) Detect(trackingNumber string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Matches(trackingNumber) {
			return a, true
		}
	}
	return nil, false
}

// Validate is a pure pre-flight query: it reports whether any adapter claims
// the tracking number and which carrier that is. It never errors.
func (r *Router) Validate(trackingNumber string) (bool, ID) {
	adapter, ok := r.Detect(trackingNumber)
	if !ok {
		return false, ""
	}
	return true, adapter.ID()
}

// Track resolves the adapter (explicit hint first, else auto-detection) and
// delegates the query to it.
func (r *Router) Track(ctx context.Context, trackingNumber, hint string) (Result, error) {
	var adapter Adapter
	if strings.TrimSpace(hint) != "" {
		resolved, err := r.Resolve(hint)
		if err != nil {
			return Result{}, err
		}
		adapter = resolved
	} else {
		detected, ok := r.Detect(trackingNumber)
		if !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrCarrierUndetermined, trackingNumber)
		}
		adapter = detected
	}
	return adapter.Track(ctx, trackingNumber)
}
