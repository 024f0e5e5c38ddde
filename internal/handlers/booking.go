package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lumenspa/booking/internal/availability"
	"github.com/lumenspa/booking/internal/booking"
	"github.com/lumenspa/booking/internal/model"
)

// Catalog is what the HTTP surface needs from the catalog store.
type Catalog interface {
	ListServices(ctx context.Context) ([]model.Service, error)
	ListStaff(ctx context.Context) ([]model.StaffMember, error)
	CreateService(ctx context.Context, name, specialty string, price model.Money, durationMinutes int) (model.Service, error)
	CreateStaff(ctx context.Context, displayName, specialty string) (model.StaffMember, error)
}

// Reservations is what the HTTP surface needs from the reservation store
// beyond what the orchestrator already drives.
type Reservations interface {
	Get(ctx context.Context, appointmentID string) (model.Appointment, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Appointment, error)
	ListByStaff(ctx context.Context, staffID string, limit int) ([]model.Appointment, error)
	Cancel(ctx context.Context, appointmentID, reason string) (model.Appointment, error)
	Complete(ctx context.Context, appointmentID string) (model.Appointment, error)
}

type BookingHandler struct {
	catalog      Catalog
	reservations Reservations
	orch         *booking.Orchestrator
	calc         *availability.Calculator
	logger       *slog.Logger
}

func NewBookingHandler(catalog Catalog, reservations Reservations, orch *booking.Orchestrator, calc *availability.Calculator, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		catalog:      catalog,
		reservations: reservations,
		orch:         orch,
		calc:         calc,
		logger:       logger,
	}
}

type slotItem struct {
	Time      string `json:"time"`
	StartTime string `json:"start_time"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if staffID == "" || dateStr == "" {
		http.Error(w, "staff_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	slots, err := h.calc.SlotsFor(r.Context(), staffID, date)
	if err != nil {
		// Fail closed: a store outage reports no availability.
		h.logger.Error("availability lookup failed", "staff_id", staffID, "err", err)
		http.Error(w, "availability unavailable", http.StatusServiceUnavailable)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		// Out-of-window slots are never offered.
		if h.orch.ValidateDate(s) != nil {
			continue
		}
		items = append(items, slotItem{
			Time:      s.Format("15:04"),
			StartTime: s.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type bookRequest struct {
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	Entries     []struct {
		ServiceID string `json:"service_id"`
		StaffID   string `json:"staff_id"`
	} `json:"entries"`
	Date          string `json:"date"` // YYYY-MM-DD
	Time          string `json:"time"` // HH:MM
	PaymentMethod string `json:"payment_method"`
	Card          *struct {
		Number string `json:"number"`
		Expiry string `json:"expiry"`
		CVV    string `json:"cvv"`
	} `json:"card"`
}

type bookedAppointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	ServiceName   string `json:"service_name"`
	StaffName     string `json:"staff_name"`
	StartTime     string `json:"start_time"`
	TotalPrice    string `json:"total_price"`
	PaymentStatus string `json:"payment_status"`
}

type bookResponse struct {
	GroupID      string                  `json:"group_id"`
	Appointments []bookedAppointmentItem `json:"appointments"`
	TotalPrice   string                  `json:"total_price"`
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.ClientID = strings.TrimSpace(req.ClientID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientEmail = strings.TrimSpace(req.ClientEmail)
	if req.ClientID == "" || req.ClientName == "" || req.ClientEmail == "" {
		http.Error(w, "client_id, client_name and client_email are required", http.StatusBadRequest)
		return
	}
	if len(req.Entries) == 0 {
		http.Error(w, "at least one service is required", http.StatusBadRequest)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.Date), time.UTC)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(req.Time))
	if err != nil {
		http.Error(w, "invalid time", http.StatusBadRequest)
		return
	}
	slot := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)

	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		http.Error(w, "invalid payment_method", http.StatusBadRequest)
		return
	}
	var card *booking.CardDetails
	if req.Card != nil {
		card = &booking.CardDetails{
			Number: req.Card.Number,
			Expiry: req.Card.Expiry,
			CVV:    req.Card.CVV,
		}
	}

	ctx := r.Context()
	session := booking.NewSession(req.ClientID, req.ClientName, req.ClientEmail)

	serviceIDs := make([]string, 0, len(req.Entries))
	for _, e := range req.Entries {
		serviceIDs = append(serviceIDs, strings.TrimSpace(e.ServiceID))
	}
	if err := h.orch.SelectServices(ctx, session, serviceIDs...); err != nil {
		h.writeBookingError(w, err)
		return
	}
	for _, e := range req.Entries {
		if err := h.orch.AssignStaff(ctx, session, strings.TrimSpace(e.ServiceID), strings.TrimSpace(e.StaffID)); err != nil {
			h.writeBookingError(w, err)
			return
		}
	}
	if err := h.orch.SelectSlot(session, slot); err != nil {
		h.writeBookingError(w, err)
		return
	}
	if err := h.orch.SelectPayment(session, method, card); err != nil {
		h.writeBookingError(w, err)
		return
	}

	appts, err := h.orch.Commit(ctx, session)
	if err != nil {
		h.writeBookingError(w, err)
		return
	}

	resp := bookResponse{GroupID: appts[0].GroupID}
	var total model.Money
	for _, a := range appts {
		total += a.TotalPrice
		resp.Appointments = append(resp.Appointments, bookedAppointmentItem{
			AppointmentID: a.ID,
			ServiceName:   a.ServiceName,
			StaffName:     a.StaffName,
			StartTime:     a.ScheduledAt.UTC().Format(time.RFC3339),
			TotalPrice:    a.TotalPrice.String(),
			PaymentStatus: string(a.PaymentStatus),
		})
	}
	resp.TotalPrice = total.String()
	writeJSON(w, http.StatusCreated, resp)
}

type quoteRequest struct {
	ServiceIDs    []string `json:"service_ids"`
	PaymentMethod string   `json:"payment_method"`
}

// Quote prices a cart without committing anything, so the UI can show the
// discounted total while the client decides.
func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		http.Error(w, "invalid payment_method", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	session := booking.NewSession("quote", "quote", "quote")
	if err := h.orch.SelectServices(ctx, session, req.ServiceIDs...); err != nil {
		h.writeBookingError(w, err)
		return
	}
	total, err := h.orch.ComputeTotal(ctx, session, method)
	if err != nil {
		h.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"total_price":    total.String(),
		"payment_method": string(method),
	})
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	GroupID       string `json:"group_id"`
	ClientID      string `json:"client_id"`
	ServiceName   string `json:"service_name"`
	StaffID       string `json:"staff_id"`
	StaffName     string `json:"staff_name"`
	StartTime     string `json:"start_time"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	TotalPrice    string `json:"total_price"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	if (clientID == "") == (staffID == "") {
		http.Error(w, "exactly one of client_id or staff_id is required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var appts []model.Appointment
	var err error
	if clientID != "" {
		appts, err = h.reservations.ListByClient(r.Context(), clientID, limit)
	} else {
		appts, err = h.reservations.ListByStaff(r.Context(), staffID, limit)
	}
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	Reason        string `json:"reason"`
}

// Cancel is open to the owning client (matching client_id) and to staff or
// admin token holders.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	if RoleFromContext(r.Context()) == "" {
		// No staff token: the caller must own the appointment.
		appt, err := h.reservations.Get(r.Context(), req.AppointmentID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				http.Error(w, "appointment not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load appointment", http.StatusInternalServerError)
			return
		}
		if strings.TrimSpace(req.ClientID) == "" || appt.ClientID != strings.TrimSpace(req.ClientID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	appt, err := h.reservations.Cancel(r.Context(), req.AppointmentID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

type completeRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// Complete requires a staff or admin token.
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.reservations.Complete(r.Context(), req.AppointmentID)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *BookingHandler) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case booking.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "time slot already booked"})
	case booking.IsStoreUnavailable(err):
		h.logger.Error("store unavailable", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service temporarily unavailable"})
	default:
		h.logger.Error("booking failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "booking failed"})
	}
}

func (h *BookingHandler) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, booking.ErrConflict):
		http.Error(w, "appointment is in a terminal state", http.StatusConflict)
	default:
		h.logger.Error("status transition failed", "err", err)
		http.Error(w, "failed to update appointment", http.StatusInternalServerError)
	}
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID: a.ID,
		GroupID:       a.GroupID,
		ClientID:      a.ClientID,
		ServiceName:   a.ServiceName,
		StaffID:       a.StaffID,
		StaffName:     a.StaffName,
		StartTime:     a.ScheduledAt.UTC().Format(time.RFC3339),
		Status:        string(a.Status),
		PaymentStatus: string(a.PaymentStatus),
		TotalPrice:    a.TotalPrice.String(),
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
