package booking

import (
	"time"

	"github.com/lumenspa/booking/internal/model"
)

// Stage of a booking session. The flow is strictly forward through these
// stages; navigating backward discards everything captured later.
type Stage int

const (
	StageSelectingServices Stage = iota
	StageAssigningStaff
	StageSelectingDateTime
	StageSelectingPayment
	StageCommitted
)

func (s Stage) String() string {
	switch s {
	case StageSelectingServices:
		return "selecting_services"
	case StageAssigningStaff:
		return "assigning_staff"
	case StageSelectingDateTime:
		return "selecting_date_time"
	case StageSelectingPayment:
		return "selecting_payment"
	case StageCommitted:
		return "committed"
	}
	return "unknown"
}

// CartEntry is one selected service with its assigned staff member and
// scheduled time. All fields beyond ServiceID fill in as the session
// advances.
type CartEntry struct {
	ServiceID string
	StaffID   string
	At        time.Time
}

// Session is the explicit value object holding one booking in progress.
// It is owned by the caller and passed into orchestrator operations; there
// is no ambient state.
type Session struct {
	Stage         Stage
	Entries       []CartEntry
	PaymentMethod model.PaymentMethod
	Card          *CardDetails

	ClientID    string
	ClientName  string
	ClientEmail string
}

func NewSession(clientID, clientName, clientEmail string) *Session {
	return &Session{
		Stage:       StageSelectingServices,
		ClientID:    clientID,
		ClientName:  clientName,
		ClientEmail: clientEmail,
	}
}

func (s *Session) entry(serviceID string) *CartEntry {
	for i := range s.Entries {
		if s.Entries[i].ServiceID == serviceID {
			return &s.Entries[i]
		}
	}
	return nil
}

// Toggle adds the service to the cart, or removes it if already present.
// Returns true if the service is in the cart afterwards.
func (s *Session) Toggle(serviceID string) bool {
	for i := range s.Entries {
		if s.Entries[i].ServiceID == serviceID {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			return false
		}
	}
	s.Entries = append(s.Entries, CartEntry{ServiceID: serviceID})
	return true
}

// Back rewinds the session to an earlier stage and clears data captured in
// the stages being abandoned. Rewinding to the current or a later stage is
// a no-op.
func (s *Session) Back(to Stage) {
	if to >= s.Stage || s.Stage == StageCommitted {
		return
	}
	if to < StageSelectingPayment {
		s.PaymentMethod = ""
		s.Card = nil
	}
	if to < StageSelectingDateTime {
		for i := range s.Entries {
			s.Entries[i].At = time.Time{}
		}
	}
	if to < StageAssigningStaff {
		for i := range s.Entries {
			s.Entries[i].StaffID = ""
		}
	}
	s.Stage = to
}

func (s *Session) allStaffed() bool {
	if len(s.Entries) == 0 {
		return false
	}
	for _, e := range s.Entries {
		if e.StaffID == "" {
			return false
		}
	}
	return true
}

func (s *Session) allScheduled() bool {
	for _, e := range s.Entries {
		if e.At.IsZero() {
			return false
		}
	}
	return len(s.Entries) > 0
}

// sameDay reports whether every scheduled entry falls on one calendar day.
func (s *Session) sameDay() bool {
	if len(s.Entries) == 0 {
		return true
	}
	y, m, d := s.Entries[0].At.Date()
	for _, e := range s.Entries[1:] {
		ey, em, ed := e.At.Date()
		if ey != y || em != m || ed != d {
			return false
		}
	}
	return true
}
