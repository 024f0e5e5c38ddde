package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by stores for a missing service, staff member or
// appointment.
var ErrNotFound = errors.New("not found")

// Service is a bookable catalog entry. Name, price and duration are
// denormalized into appointments at booking time so later catalog edits do
// not rewrite history.
type Service struct {
	ID              string
	Name            string
	Specialty       string
	Price           Money
	DurationMinutes int
	CreatedAt       time.Time
}

func NewService(id, name, specialty string, price Money, durationMinutes int) (Service, error) {
	name = strings.TrimSpace(name)
	specialty = strings.TrimSpace(specialty)
	if name == "" {
		return Service{}, fmt.Errorf("service name required")
	}
	if specialty == "" {
		return Service{}, fmt.Errorf("service specialty required")
	}
	if price <= 0 {
		return Service{}, fmt.Errorf("service price must be positive")
	}
	if durationMinutes <= 0 {
		return Service{}, fmt.Errorf("service duration must be positive")
	}
	return Service{
		ID:              id,
		Name:            name,
		Specialty:       specialty,
		Price:           price,
		DurationMinutes: durationMinutes,
	}, nil
}

// StaffMember serves exactly one specialty, which decides which services
// they can be assigned to.
type StaffMember struct {
	ID          string
	DisplayName string
	Specialty   string
	CreatedAt   time.Time
}

func NewStaffMember(id, displayName, specialty string) (StaffMember, error) {
	displayName = strings.TrimSpace(displayName)
	specialty = strings.TrimSpace(specialty)
	if displayName == "" {
		return StaffMember{}, fmt.Errorf("staff display name required")
	}
	if specialty == "" {
		return StaffMember{}, fmt.Errorf("staff specialty required")
	}
	return StaffMember{ID: id, DisplayName: displayName, Specialty: specialty}, nil
}

// CanPerform reports whether the staff member is qualified for the service.
func (s StaffMember) CanPerform(svc Service) bool {
	return strings.EqualFold(s.Specialty, svc.Specialty)
}

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// CanTransitionTo enforces the lifecycle: booked is the only non-terminal
// state.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s != StatusBooked {
		return false
	}
	return next == StatusCompleted || next == StatusCancelled
}

type PaymentMethod string

const (
	PaymentWeb    PaymentMethod = "web"
	PaymentOnSite PaymentMethod = "on_site"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentWeb:
		return PaymentWeb, nil
	case PaymentOnSite:
		return PaymentOnSite, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
)

// Appointment is one service instance for one client. A multi-service
// booking produces sibling rows sharing GroupID, ScheduledAt and client
// fields.
type Appointment struct {
	ID          string
	GroupID     string
	ClientID    string
	ClientName  string
	ClientEmail string

	// Denormalized from the catalog at booking time.
	ServiceID       string
	ServiceName     string
	ServicePrice    Money
	DurationMinutes int

	StaffID   string
	StaffName string

	ScheduledAt     time.Time
	Status          AppointmentStatus
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	DiscountApplied bool
	TotalPrice      Money
	CreatedAt       time.Time
	CancelledAt     *time.Time
	CancelReason    string
}
