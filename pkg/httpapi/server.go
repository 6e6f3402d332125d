// Package httpapi exposes the roster, booking and waitlist operations over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jakechorley/daycare-scheduler/pkg/db"
	"github.com/jakechorley/daycare-scheduler/pkg/lock"
)

// Server holds the dependencies shared by the handlers
type Server struct {
	database db.Database
	locker   lock.Locker
	logger   *zap.Logger
	loc      *time.Location
	validate *validator.Validate
}

// NewServer creates a server. locker may be nil; loc interprets dates given without a time.
func NewServer(database db.Database, locker lock.Locker, logger *zap.Logger, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		database: database,
		locker:   locker,
		logger:   logger,
		loc:      loc,
		validate: validator.New(),
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Group(func(r chi.Router) {
		r.Use(s.resolveActor)

		// Roster
		r.Post("/shifts", s.createShift)
		r.Delete("/shifts/{id}", s.deactivateShift)
		r.Get("/daycares/{id}/roster", s.listRoster)
		r.Post("/unavailability", s.addUnavailability)
		r.Delete("/unavailability/{id}", s.deactivateUnavailability)

		// Bookings
		r.Post("/bookings", s.createBooking)
		r.Post("/bookings/{id}/cancel", s.cancelBooking)
		r.Post("/bookings/{id}/check-in", s.checkIn)
		r.Get("/daycares/{id}/bookings/export", s.exportBookings)

		// Waitlist
		r.Post("/waitlist/{id}/{action}", s.waitlistAction)

		// Administration
		r.Put("/daycares/{id}/hours/{day}", s.setOpeningHours)
		r.Post("/daycares/{id}/blacklist", s.blacklistPet)
		r.Delete("/blacklist/{id}", s.liftBlacklist)
	})

	return router
}
