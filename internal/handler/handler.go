// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/oneevent/internal/model"
	"github.com/Shivanand-hulikatti/oneevent/internal/service"
)

var validate = validator.New()

// EventHandler holds all HTTP handlers for the event booking API.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// writeServiceError maps the model error kinds to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		validation *model.ValidationError
		capacity   *model.CapacityError
		authz      *model.AuthorizationError
		notFound   *model.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authz):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &capacity):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeRequest decodes a JSON object and checks its validate tags.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// decodeOptional is decodeRequest for bodies callers may omit.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return validate.Struct(dst)
}

// ─── Events ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), PersonFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Archived events are included with ?archived=1.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	archived := r.URL.Query().Get("archived") == "1"
	events, err := h.svc.ListEvents(r.Context(), PersonFrom(r.Context()), archived)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []*model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateCategories handles PUT /events/{id}/categories
func (h *EventHandler) UpdateCategories(w http.ResponseWriter, r *http.Request) {
	var req []model.CategoryInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	for _, c := range req {
		if err := validate.Struct(c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid category: "+err.Error())
			return
		}
	}

	event, err := h.svc.UpdateCategories(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event.Categories)
}

// AddSession handles POST /events/{id}/sessions
func (h *EventHandler) AddSession(w http.ResponseWriter, r *http.Request) {
	var req model.SessionInput
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.AddSession(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// AddChoice handles POST /events/{id}/choices
func (h *EventHandler) AddChoice(w http.ResponseWriter, r *http.Request) {
	var req model.ChoiceInput
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	choice, err := h.svc.AddChoice(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, choice)
}

// DeleteChoice handles DELETE /events/{id}/choices/{choiceID}
func (h *EventHandler) DeleteChoice(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteChoice(r.Context(), PersonFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "choiceID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteOption handles DELETE /events/{id}/choices/{choiceID}/options/{optionID}
// Bookings holding the option move to the choice's default.
func (h *EventHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteOption(r.Context(), PersonFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "choiceID"), chi.URLParam(r, "optionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddOption handles POST /events/{id}/choices/{choiceID}/options
func (h *EventHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	var req model.OptionInput
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	option, err := h.svc.AddOption(r.Context(), PersonFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "choiceID"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, option)
}

type defaultOptionRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}

// SetDefaultOption handles POST /events/{id}/choices/{choiceID}/default
func (h *EventHandler) SetDefaultOption(w http.ResponseWriter, r *http.Request) {
	var req defaultOptionRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err := h.svc.SetDefaultOption(r.Context(), PersonFrom(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "choiceID"), req.OptionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// Book handles POST /events/{id}/bookings
// Responds 201 when a placeholder was created and 200 when the person
// already had a booking.
func (h *EventHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req model.BookRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booking, created, err := h.svc.Book(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"), req.PersonID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, booking)
}

// ConfirmBooking handles POST /bookings/{id}/confirm
func (h *EventHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmRequest
	if err := decodeOptional(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.svc.ConfirmBooking(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// UpdateBookingOptions handles PUT /bookings/{id}/options
func (h *EventHandler) UpdateBookingOptions(w http.ResponseWriter, r *http.Request) {
	var req model.OptionsRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.svc.UpdateBookingOptions(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// bookingCommand adapts a body-less booking operation such as
// EventService.CancelBooking to a handler responding with the booking.
func bookingCommand(op func(ctx context.Context, actor model.Person, bookingID string) (*model.Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		booking, err := op(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

// ─── Reports ──────────────────────────────────────────────────────────────────

// CollectedSums handles GET /events/{id}/collected
func (h *EventHandler) CollectedSums(w http.ResponseWriter, r *http.Request) {
	sums, err := h.svc.CollectedSums(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sums)
}

// OptionCounts handles GET /events/{id}/options-summary
func (h *EventHandler) OptionCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.OptionCounts(r.Context(), PersonFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if counts == nil {
		counts = []model.ChoiceSummary{}
	}
	writeJSON(w, http.StatusOK, counts)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
