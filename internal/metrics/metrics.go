package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch holds counters for dispatch workflow outcomes. Counters are
// created unregistered; the app container registers them once.
type Dispatch struct {
	Broadcasts         prometheus.Counter
	EmptyBroadcasts    prometheus.Counter
	AcceptConflicts    prometheus.Counter
	Deliveries         prometheus.Counter
	ThrottledLocations prometheus.Counter
}

// NewDispatch returns dispatch workflow counters.
func NewDispatch() *Dispatch {
	return &Dispatch{
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_broadcasts_total",
			Help: "Total number of assignment broadcasts created",
		}),
		EmptyBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_empty_broadcasts_total",
			Help: "Total number of out-for-delivery transitions with zero available couriers",
		}),
		AcceptConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_accept_conflicts_total",
			Help: "Total number of accept calls rejected as taken, stale or courier-busy",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_deliveries_confirmed_total",
			Help: "Total number of OTP-confirmed deliveries",
		}),
		ThrottledLocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_location_updates_throttled_total",
			Help: "Total number of courier location pushes dropped by the min-interval throttle",
		}),
	}
}

// Collectors lists all dispatch counters for bulk registration.
func (d *Dispatch) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		d.Broadcasts,
		d.EmptyBroadcasts,
		d.AcceptConflicts,
		d.Deliveries,
		d.ThrottledLocations,
	}
}

// NewRateLimitExceededTotal returns a counter for HTTP requests rejected by rate limiting.
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}
