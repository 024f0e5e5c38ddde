package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lumenspa/booking/internal/availability"
	"github.com/lumenspa/booking/internal/model"
)

// discountPercent is what remains of the price when the 15% online-payment
// discount applies.
const discountPercent = 85

// CatalogStore is the read-only catalog collaborator.
type CatalogStore interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	GetStaff(ctx context.Context, id string) (model.StaffMember, error)
}

// ReservationStore commits appointment groups. CreateGroup must write all
// rows atomically: on a slot collision it returns an error wrapping
// ErrConflict and no row is visible afterwards.
type ReservationStore interface {
	availability.ReservationReader
	CreateGroup(ctx context.Context, appts []model.Appointment) ([]model.Appointment, error)
}

// Window is the bookable horizon relative to now. Both bounds are business
// rules, not platform constraints.
type Window struct {
	MinLead    time.Duration
	MaxHorizon time.Duration
}

func DefaultWindow() Window {
	return Window{MinLead: 48 * time.Hour, MaxHorizon: 30 * 24 * time.Hour}
}

// Orchestrator drives a booking session from service selection through
// commit. All validation happens here, before any write.
type Orchestrator struct {
	catalog      CatalogStore
	reservations ReservationStore
	calc         *availability.Calculator
	window       Window
	logger       *slog.Logger
	now          func() time.Time
}

func NewOrchestrator(catalog CatalogStore, reservations ReservationStore, calc *availability.Calculator, window Window, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:      catalog,
		reservations: reservations,
		calc:         calc,
		window:       window,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock fixes the orchestrator's notion of now. Tests use this to pin
// window boundaries.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// SelectServices toggles cart membership for each id in turn. Unknown
// services are rejected before touching the session.
func (o *Orchestrator) SelectServices(ctx context.Context, s *Session, serviceIDs ...string) error {
	if s.Stage == StageCommitted {
		return invalid("session", "already committed")
	}
	for _, id := range serviceIDs {
		if s.entry(id) != nil {
			// Removing from the cart needs no catalog lookup.
			continue
		}
		if _, err := o.catalog.GetService(ctx, id); err != nil {
			if isNotFound(err) {
				return invalid("service_id", "unknown service %s", id)
			}
			return storeErr("get service", id, err)
		}
	}
	for _, id := range serviceIDs {
		s.Toggle(id)
	}
	if len(s.Entries) > 0 && s.Stage == StageSelectingServices {
		s.Stage = StageAssigningStaff
	}
	return nil
}

// AssignStaff binds a staff member to a cart entry. The staff member's
// specialty must match the service's.
func (o *Orchestrator) AssignStaff(ctx context.Context, s *Session, serviceID, staffID string) error {
	if s.Stage == StageCommitted {
		return invalid("session", "already committed")
	}
	e := s.entry(serviceID)
	if e == nil {
		return invalid("service_id", "service %s is not in the cart", serviceID)
	}

	svc, err := o.catalog.GetService(ctx, serviceID)
	if err != nil {
		if isNotFound(err) {
			return invalid("service_id", "unknown service %s", serviceID)
		}
		return storeErr("get service", serviceID, err)
	}
	staff, err := o.catalog.GetStaff(ctx, staffID)
	if err != nil {
		if isNotFound(err) {
			return invalid("staff_id", "unknown staff member %s", staffID)
		}
		return storeErr("get staff", staffID, err)
	}
	if !staff.CanPerform(svc) {
		return invalid("staff_id", "staff specialty %q does not match service specialty %q", staff.Specialty, svc.Specialty)
	}

	e.StaffID = staffID
	if s.allStaffed() && s.Stage == StageAssigningStaff {
		s.Stage = StageSelectingDateTime
	}
	return nil
}

// ValidateDate enforces the booking window: now+lead <= date <= now+horizon.
func (o *Orchestrator) ValidateDate(date time.Time) error {
	now := o.now()
	if date.Before(now.Add(o.window.MinLead)) {
		return invalid("date", "bookings need at least %s notice", o.window.MinLead)
	}
	if date.After(now.Add(o.window.MaxHorizon)) {
		return invalid("date", "bookings open at most %s ahead", o.window.MaxHorizon)
	}
	return nil
}

// SelectSlot schedules every cart entry at the given slot start. The slot
// must lie on the grid and inside the booking window.
func (o *Orchestrator) SelectSlot(s *Session, slot time.Time) error {
	if s.Stage == StageCommitted {
		return invalid("session", "already committed")
	}
	if !s.allStaffed() {
		return invalid("cart", "assign staff to every service first")
	}
	if err := o.ValidateDate(slot); err != nil {
		return err
	}
	if !o.calc.Grid().Contains(slot) {
		return invalid("time", "%s is not a bookable slot", slot.Format("15:04"))
	}
	for i := range s.Entries {
		s.Entries[i].At = slot
	}
	if s.Stage == StageSelectingDateTime {
		s.Stage = StageSelectingPayment
	}
	return nil
}

// SelectPayment records the payment method. Web payments must carry
// well-formed card details.
func (o *Orchestrator) SelectPayment(s *Session, method model.PaymentMethod, card *CardDetails) error {
	if s.Stage == StageCommitted {
		return invalid("session", "already committed")
	}
	switch method {
	case model.PaymentWeb:
		if card == nil {
			return invalid("card", "card details required for web payment")
		}
		if err := card.Validate(o.now()); err != nil {
			return err
		}
	case model.PaymentOnSite:
		card = nil
	default:
		return invalid("payment_method", "unknown payment method %q", method)
	}
	s.PaymentMethod = method
	s.Card = card
	return nil
}

// ComputeTotal sums the discounted per-service prices for the cart. The
// discount applies per service so the sum always equals what the committed
// appointment rows carry.
func (o *Orchestrator) ComputeTotal(ctx context.Context, s *Session, method model.PaymentMethod) (model.Money, error) {
	var total model.Money
	for _, e := range s.Entries {
		svc, err := o.catalog.GetService(ctx, e.ServiceID)
		if err != nil {
			if isNotFound(err) {
				return 0, invalid("service_id", "unknown service %s", e.ServiceID)
			}
			return 0, storeErr("get service", e.ServiceID, err)
		}
		total += servicePrice(svc, method)
	}
	return total, nil
}

// Commit validates the whole session and writes one appointment per cart
// entry in a single atomic group. On a slot conflict every row is rolled
// back and the error wraps ErrConflict.
func (o *Orchestrator) Commit(ctx context.Context, s *Session) ([]model.Appointment, error) {
	if s.Stage == StageCommitted {
		return nil, invalid("session", "already committed")
	}
	if len(s.Entries) == 0 {
		return nil, invalid("cart", "cart is empty")
	}
	if !s.allStaffed() {
		return nil, invalid("cart", "every service needs an assigned staff member")
	}
	if !s.allScheduled() {
		return nil, invalid("cart", "every service needs a scheduled time")
	}
	if !s.sameDay() {
		return nil, invalid("cart", "all services must be booked on the same day")
	}
	if s.PaymentMethod == "" {
		return nil, invalid("payment_method", "payment method required")
	}
	if s.PaymentMethod == model.PaymentWeb {
		if s.Card == nil {
			return nil, invalid("card", "card details required for web payment")
		}
		if err := s.Card.Validate(o.now()); err != nil {
			return nil, err
		}
	}

	grid := o.calc.Grid()
	for _, e := range s.Entries {
		if err := o.ValidateDate(e.At); err != nil {
			return nil, err
		}
		if !grid.Contains(e.At) {
			return nil, invalid("time", "%s is not a bookable slot", e.At.Format("15:04"))
		}
	}

	groupID := uuid.NewString()
	now := o.now()
	appts := make([]model.Appointment, 0, len(s.Entries))
	for _, e := range s.Entries {
		svc, err := o.catalog.GetService(ctx, e.ServiceID)
		if err != nil {
			if isNotFound(err) {
				return nil, invalid("service_id", "unknown service %s", e.ServiceID)
			}
			return nil, storeErr("get service", e.ServiceID, err)
		}
		staff, err := o.catalog.GetStaff(ctx, e.StaffID)
		if err != nil {
			if isNotFound(err) {
				return nil, invalid("staff_id", "unknown staff member %s", e.StaffID)
			}
			return nil, storeErr("get staff", e.StaffID, err)
		}
		// Re-check the pairing in case the assignment predates a cart edit.
		if !staff.CanPerform(svc) {
			return nil, invalid("staff_id", "staff specialty %q does not match service specialty %q", staff.Specialty, svc.Specialty)
		}

		paymentStatus := model.PaymentPending
		if s.PaymentMethod == model.PaymentWeb {
			paymentStatus = model.PaymentPaid
		}
		appts = append(appts, model.Appointment{
			ID:              uuid.NewString(),
			GroupID:         groupID,
			ClientID:        s.ClientID,
			ClientName:      s.ClientName,
			ClientEmail:     s.ClientEmail,
			ServiceID:       svc.ID,
			ServiceName:     svc.Name,
			ServicePrice:    svc.Price,
			DurationMinutes: svc.DurationMinutes,
			StaffID:         staff.ID,
			StaffName:       staff.DisplayName,
			ScheduledAt:     e.At,
			Status:          model.StatusBooked,
			PaymentMethod:   s.PaymentMethod,
			PaymentStatus:   paymentStatus,
			DiscountApplied: s.PaymentMethod == model.PaymentWeb,
			TotalPrice:      servicePrice(svc, s.PaymentMethod),
			CreatedAt:       now,
		})
	}

	created, err := o.reservations.CreateGroup(ctx, appts)
	if err != nil {
		return nil, err
	}

	s.Stage = StageCommitted
	o.logger.Info("booking committed",
		"group_id", groupID,
		"client_id", s.ClientID,
		"services", len(created),
		"scheduled_at", created[0].ScheduledAt,
	)
	return created, nil
}

func servicePrice(svc model.Service, method model.PaymentMethod) model.Money {
	if method == model.PaymentWeb {
		return svc.Price.ApplyPercent(discountPercent)
	}
	return svc.Price
}
