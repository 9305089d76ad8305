package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quickbites-dispatch/internal/http/handlers"
	mw "quickbites-dispatch/internal/http/middleware"
	"quickbites-dispatch/internal/http/middleware/ratelimit"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Base          *handlers.Handlers
	Orders        *handlers.OrderHandler
	Dispatch      *handlers.DispatchHandler
	OTP           *handlers.OTPHandler
	Location      *handlers.LocationHandler
	LocationLimit *ratelimit.Middleware
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Observability(d.Base.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(5 * time.Second))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", d.Orders.Checkout)
		r.Get("/{id}", d.Orders.Get)
	})

	r.Route("/shop-orders/{id}", func(r chi.Router) {
		r.Patch("/status", d.Dispatch.Transition)
		r.Post("/otp", d.OTP.Generate)
		r.Post("/otp/verify", d.OTP.Verify)
	})

	r.Post("/assignments/{id}/accept", d.Dispatch.Accept)

	r.Route("/couriers/{id}", func(r chi.Router) {
		r.Get("/assignment", d.Dispatch.Current)
		r.Post("/online", d.Location.Online)

		loc := r
		if d.LocationLimit != nil {
			loc = r.With(d.LocationLimit.Handler())
		}
		loc.Post("/location", d.Location.Update)
		loc.Delete("/location", d.Location.Offline)
	})

	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	return r
}
