package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API router with its middleware stack.
func NewRouter(h *EventHandler, log *slog.Logger, jwtSecret string, people PersonLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(Identity(jwtSecret, people))

	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Put("/categories", h.UpdateCategories)
			r.Post("/sessions", h.AddSession)
			r.Post("/choices", h.AddChoice)
			r.Delete("/choices/{choiceID}", h.DeleteChoice)
			r.Post("/choices/{choiceID}/options", h.AddOption)
			r.Delete("/choices/{choiceID}/options/{optionID}", h.DeleteOption)
			r.Post("/choices/{choiceID}/default", h.SetDefaultOption)
			r.Post("/bookings", h.Book)
			r.Get("/collected", h.CollectedSums)
			r.Get("/options-summary", h.OptionCounts)
		})
	})

	r.Route("/bookings/{id}", func(r chi.Router) {
		r.Post("/confirm", h.ConfirmBooking)
		r.Put("/options", h.UpdateBookingOptions)
		r.Post("/cancel", bookingCommand(h.svc.CancelBooking))
		r.Post("/payment", bookingCommand(h.svc.SetPayment))
		r.Delete("/payment", bookingCommand(h.svc.ClearPayment))
		r.Post("/exemption", bookingCommand(h.svc.SetExemption))
		r.Delete("/exemption", bookingCommand(h.svc.ClearExemption))
	})

	return r
}
