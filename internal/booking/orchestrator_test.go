package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lumenspa/booking/internal/availability"
	"github.com/lumenspa/booking/internal/model"
)

type fakeCatalog struct {
	services map[string]model.Service
	staff    map[string]model.StaffMember
	err      error
}

func (f *fakeCatalog) GetService(_ context.Context, id string) (model.Service, error) {
	if f.err != nil {
		return model.Service{}, f.err
	}
	svc, ok := f.services[id]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return svc, nil
}

func (f *fakeCatalog) GetStaff(_ context.Context, id string) (model.StaffMember, error) {
	if f.err != nil {
		return model.StaffMember{}, f.err
	}
	st, ok := f.staff[id]
	if !ok {
		return model.StaffMember{}, model.ErrNotFound
	}
	return st, nil
}

// fakeReservations enforces the (staff, time) uniqueness the way the
// Postgres partial unique index does, including group atomicity.
type fakeReservations struct {
	mu    sync.Mutex
	rows  []model.Appointment
	fail  error
	calls int
}

func (f *fakeReservations) ListForStaffRange(_ context.Context, staffID string, start, end time.Time) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, a := range f.rows {
		if a.StaffID != staffID || a.Status == model.StatusCancelled {
			continue
		}
		if a.ScheduledAt.Before(start) || !a.ScheduledAt.Before(end) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeReservations) CreateGroup(_ context.Context, appts []model.Appointment) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	for _, a := range appts {
		for _, existing := range f.rows {
			if existing.Status != model.StatusBooked {
				continue
			}
			if existing.StaffID == a.StaffID && existing.ScheduledAt.Equal(a.ScheduledAt) {
				return nil, fmt.Errorf("appointments unique violation: %w", ErrConflict)
			}
		}
	}
	f.rows = append(f.rows, appts...)
	return appts, nil
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeCatalog, *fakeReservations) {
	t.Helper()
	catalog := &fakeCatalog{
		services: map[string]model.Service{
			"svc-massage": {ID: "svc-massage", Name: "Deep Tissue Massage", Specialty: "Massage", Price: 10000, DurationMinutes: 60},
			"svc-facial":  {ID: "svc-facial", Name: "Hydrating Facial", Specialty: "Facial", Price: 6000, DurationMinutes: 30},
		},
		staff: map[string]model.StaffMember{
			"st-mia": {ID: "st-mia", DisplayName: "Mia", Specialty: "Massage"},
			"st-ana": {ID: "st-ana", DisplayName: "Ana", Specialty: "Facial"},
		},
	}
	reservations := &fakeReservations{}
	calc := availability.NewCalculator(availability.DefaultGrid(), reservations)
	o := NewOrchestrator(catalog, reservations, calc, DefaultWindow(), slog.Default()).
		WithClock(func() time.Time { return testNow })
	return o, catalog, reservations
}

func validSlot() time.Time {
	// Five days out at 10:00, comfortably inside the 48h..30d window.
	return time.Date(2026, 9, 6, 10, 0, 0, 0, time.UTC)
}

func validCard() *CardDetails {
	return &CardDetails{Number: "4242 4242 4242 4242", Expiry: "12/28", CVV: "123"}
}

func buildSession(t *testing.T, o *Orchestrator, method model.PaymentMethod) *Session {
	t.Helper()
	ctx := context.Background()
	s := NewSession("client-1", "Jordan Reyes", "jordan@example.com")
	if err := o.SelectServices(ctx, s, "svc-massage", "svc-facial"); err != nil {
		t.Fatalf("select services: %v", err)
	}
	if err := o.AssignStaff(ctx, s, "svc-massage", "st-mia"); err != nil {
		t.Fatalf("assign massage staff: %v", err)
	}
	if err := o.AssignStaff(ctx, s, "svc-facial", "st-ana"); err != nil {
		t.Fatalf("assign facial staff: %v", err)
	}
	if err := o.SelectSlot(s, validSlot()); err != nil {
		t.Fatalf("select slot: %v", err)
	}
	var card *CardDetails
	if method == model.PaymentWeb {
		card = validCard()
	}
	if err := o.SelectPayment(s, method, card); err != nil {
		t.Fatalf("select payment: %v", err)
	}
	return s
}

func TestValidateDateBoundaries(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	if err := o.ValidateDate(testNow.Add(48*time.Hour - time.Minute)); !IsValidation(err) {
		t.Fatalf("47h59m out should fail validation, got %v", err)
	}
	if err := o.ValidateDate(testNow.Add(48*time.Hour + time.Minute)); err != nil {
		t.Fatalf("48h01m out should pass, got %v", err)
	}
	if err := o.ValidateDate(testNow.Add(30*24*time.Hour + time.Minute)); !IsValidation(err) {
		t.Fatalf("30d + 1m should fail validation, got %v", err)
	}
	if err := o.ValidateDate(testNow.Add(30*24*time.Hour - time.Minute)); err != nil {
		t.Fatalf("29d23h59m should pass, got %v", err)
	}
}

func TestComputeTotalDiscount(t *testing.T) {
	o, catalog, _ := newTestOrchestrator(t)
	catalog.services["svc-hundred"] = model.Service{ID: "svc-hundred", Name: "Signature", Specialty: "Massage", Price: 10000, DurationMinutes: 60}

	ctx := context.Background()
	s := NewSession("c", "n", "e")
	if err := o.SelectServices(ctx, s, "svc-hundred"); err != nil {
		t.Fatalf("select: %v", err)
	}

	web, err := o.ComputeTotal(ctx, s, model.PaymentWeb)
	if err != nil {
		t.Fatalf("compute web: %v", err)
	}
	if web.String() != "85.00" {
		t.Fatalf("web total = %s, want 85.00", web)
	}

	onSite, err := o.ComputeTotal(ctx, s, model.PaymentOnSite)
	if err != nil {
		t.Fatalf("compute on-site: %v", err)
	}
	if onSite.String() != "100.00" {
		t.Fatalf("on-site total = %s, want 100.00", onSite)
	}
}

func TestAssignStaffSpecialtyMismatch(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	s := NewSession("c", "n", "e")
	if err := o.SelectServices(ctx, s, "svc-massage"); err != nil {
		t.Fatalf("select: %v", err)
	}
	err := o.AssignStaff(ctx, s, "svc-massage", "st-ana")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if s.entry("svc-massage").StaffID != "" {
		t.Fatal("mismatched assignment must not stick")
	}
}

func TestCommitHappyPathWebPayment(t *testing.T) {
	o, _, reservations := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentWeb)

	appts, err := o.Commit(context.Background(), s)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if s.Stage != StageCommitted {
		t.Fatalf("stage = %s", s.Stage)
	}
	if appts[0].GroupID == "" || appts[0].GroupID != appts[1].GroupID {
		t.Fatal("siblings must share a group id")
	}
	for _, a := range appts {
		if a.Status != model.StatusBooked {
			t.Fatalf("status = %s", a.Status)
		}
		if a.PaymentStatus != model.PaymentPaid {
			t.Fatalf("web payment should be paid, got %s", a.PaymentStatus)
		}
		if !a.DiscountApplied {
			t.Fatal("discount flag should be set")
		}
	}
	// 100.00 -> 85.00 and 60.00 -> 51.00.
	var total model.Money
	for _, a := range appts {
		total += a.TotalPrice
	}
	if total.String() != "136.00" {
		t.Fatalf("total = %s, want 136.00", total)
	}
	if len(reservations.rows) != 2 {
		t.Fatalf("store rows = %d", len(reservations.rows))
	}
}

func TestCommitOnSitePaymentIsPending(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentOnSite)

	appts, err := o.Commit(context.Background(), s)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	for _, a := range appts {
		if a.PaymentStatus != model.PaymentPending {
			t.Fatalf("on-site payment should be pending, got %s", a.PaymentStatus)
		}
		if a.DiscountApplied {
			t.Fatal("no discount for on-site payment")
		}
	}
	if appts[0].TotalPrice.String() != "100.00" {
		t.Fatalf("total = %s", appts[0].TotalPrice)
	}
}

func TestCommitRejectsMixedDayCart(t *testing.T) {
	o, _, reservations := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentOnSite)
	// Push the second entry to the next day behind the orchestrator's back.
	s.Entries[1].At = s.Entries[1].At.AddDate(0, 0, 1)

	_, err := o.Commit(context.Background(), s)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if reservations.calls != 0 {
		t.Fatal("no write may be attempted for an invalid cart")
	}
}

func TestCommitRejectsUnstaffedCart(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	s := NewSession("c", "n", "e")
	if err := o.SelectServices(ctx, s, "svc-massage"); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.Entries[0].At = validSlot()
	s.PaymentMethod = model.PaymentOnSite

	_, err := o.Commit(ctx, s)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommitRejectsOffGridSlot(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentOnSite)
	for i := range s.Entries {
		s.Entries[i].At = s.Entries[i].At.Add(10 * time.Minute)
	}
	_, err := o.Commit(context.Background(), s)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommitConflictSurfacesDistinctly(t *testing.T) {
	o, _, reservations := newTestOrchestrator(t)

	first := buildSession(t, o, model.PaymentOnSite)
	if _, err := o.Commit(context.Background(), first); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	second := NewSession("client-2", "Sam Ortiz", "sam@example.com")
	ctx := context.Background()
	if err := o.SelectServices(ctx, second, "svc-massage"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := o.AssignStaff(ctx, second, "svc-massage", "st-mia"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := o.SelectSlot(second, validSlot()); err != nil {
		t.Fatalf("slot: %v", err)
	}
	if err := o.SelectPayment(second, model.PaymentOnSite, nil); err != nil {
		t.Fatalf("payment: %v", err)
	}

	_, err := o.Commit(ctx, second)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if second.Stage == StageCommitted {
		t.Fatal("conflicted session must not be committed")
	}
	if len(reservations.rows) != 2 {
		t.Fatalf("conflicting commit must not add rows, have %d", len(reservations.rows))
	}
}

func TestConcurrentCommitsAtMostOneWins(t *testing.T) {
	o, _, reservations := newTestOrchestrator(t)
	ctx := context.Background()

	sessions := make([]*Session, 4)
	for i := range sessions {
		s := NewSession(fmt.Sprintf("client-%d", i), "n", "e")
		if err := o.SelectServices(ctx, s, "svc-massage"); err != nil {
			t.Fatalf("select: %v", err)
		}
		if err := o.AssignStaff(ctx, s, "svc-massage", "st-mia"); err != nil {
			t.Fatalf("assign: %v", err)
		}
		if err := o.SelectSlot(s, validSlot()); err != nil {
			t.Fatalf("slot: %v", err)
		}
		if err := o.SelectPayment(s, model.PaymentOnSite, nil); err != nil {
			t.Fatalf("payment: %v", err)
		}
		sessions[i] = s
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			_, err := o.Commit(ctx, s)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(s)
	}
	wg.Wait()

	if wins != 1 || conflicts != 3 {
		t.Fatalf("wins=%d conflicts=%d, want 1/3", wins, conflicts)
	}
	if len(reservations.rows) != 1 {
		t.Fatalf("store rows = %d, want 1", len(reservations.rows))
	}
}

func TestCommitWebPaymentRequiresCard(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentOnSite)
	s.PaymentMethod = model.PaymentWeb
	s.Card = nil

	_, err := o.Commit(context.Background(), s)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCatalogOutageIsStoreError(t *testing.T) {
	o, catalog, _ := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentOnSite)
	catalog.err = errors.New("connection refused")

	_, err := o.Commit(context.Background(), s)
	if !IsStoreUnavailable(err) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSessionBackwardNavigationClearsLaterState(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentWeb)
	if s.Stage != StageSelectingPayment {
		t.Fatalf("stage = %s", s.Stage)
	}

	s.Back(StageSelectingServices)
	if s.Stage != StageSelectingServices {
		t.Fatalf("stage = %s", s.Stage)
	}
	for _, e := range s.Entries {
		if e.StaffID != "" {
			t.Fatal("staff assignments must be cleared")
		}
		if !e.At.IsZero() {
			t.Fatal("scheduled times must be cleared")
		}
	}
	if s.PaymentMethod != "" || s.Card != nil {
		t.Fatal("payment state must be cleared")
	}
	// Cart membership survives backward navigation.
	if len(s.Entries) != 2 {
		t.Fatalf("cart entries = %d", len(s.Entries))
	}
}

func TestSessionBackToDateTimeKeepsStaff(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	s := buildSession(t, o, model.PaymentWeb)

	s.Back(StageSelectingDateTime)
	for _, e := range s.Entries {
		if e.StaffID == "" {
			t.Fatal("staff assignments survive a date change")
		}
		if !e.At.IsZero() {
			t.Fatal("scheduled times must be cleared")
		}
	}
	if s.Card != nil {
		t.Fatal("payment state must be cleared")
	}
}

func TestSelectServicesToggleRemoves(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	s := NewSession("c", "n", "e")
	if err := o.SelectServices(ctx, s, "svc-massage", "svc-facial"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := o.SelectServices(ctx, s, "svc-facial"); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if len(s.Entries) != 1 || s.Entries[0].ServiceID != "svc-massage" {
		t.Fatalf("unexpected cart: %+v", s.Entries)
	}
}

func TestSelectServicesUnknownService(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	s := NewSession("c", "n", "e")
	err := o.SelectServices(context.Background(), s, "svc-nope")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(s.Entries) != 0 {
		t.Fatal("cart must stay empty")
	}
}
