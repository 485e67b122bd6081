package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	apimw "github.com/phrazzld/sprout-api/internal/api/middleware"
	"github.com/phrazzld/sprout-api/internal/api/shared"
	"github.com/phrazzld/sprout-api/internal/service/auth"
	"github.com/phrazzld/sprout-api/internal/service/schedule"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps are the collaborators the HTTP surface needs.
type RouterDeps struct {
	JWT         auth.JWTService
	Schedules   schedule.Service
	Devices     DeviceRegistrar
	Preferences PreferenceManager
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Health reports dependency health for /health; nil means always healthy.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(d RouterDeps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apimw.NewTraceMiddleware(log))

	authMiddleware := apimw.NewAuthMiddleware(d.JWT)
	deviceHandler := NewDeviceHandler(d.Devices, log)
	scheduleHandler := NewScheduleHandler(d.Schedules, log)
	preferenceHandler := NewPreferenceHandler(d.Preferences, log)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/devices", deviceHandler.Register)

		r.Put("/plants/{plantID}/schedules/{kind}", scheduleHandler.PutSchedule)
		r.Post("/schedules/{id}/deactivate", scheduleHandler.DeactivateSchedule)
		r.Post("/occurrences/{id}/complete", scheduleHandler.CompleteOccurrence)

		r.Get("/notifications/preferences", preferenceHandler.Get)
		r.Patch("/notifications/preferences", preferenceHandler.Patch)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "unhealthy", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
