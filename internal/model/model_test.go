package model

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   string
		want Money
		ok   bool
	}{
		{"120", 12000, true},
		{"120.5", 12050, true},
		{"120.50", 12050, true},
		{"0.05", 5, true},
		{"100.00", 10000, true},
		{"", 0, false},
		{"-5", 0, false},
		{"1.234", 0, false},
		{"abc", 0, false},
	}
	for _, c := range cases {
		got, err := ParseMoney(c.in)
		if c.ok && err != nil {
			t.Fatalf("ParseMoney(%q): unexpected error %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("ParseMoney(%q): expected error", c.in)
		}
		if c.ok && got != c.want {
			t.Fatalf("ParseMoney(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if s := Money(8500).String(); s != "85.00" {
		t.Fatalf("got %q", s)
	}
	if s := Money(5).String(); s != "0.05" {
		t.Fatalf("got %q", s)
	}
}

func TestApplyPercentRoundsHalfUp(t *testing.T) {
	// 99 cents at 85% is 84.15 cents -> 84.
	if got := Money(99).ApplyPercent(85); got != 84 {
		t.Fatalf("got %d", got)
	}
	// 10 cents at 85% is 8.5 cents -> rounds up to 9.
	if got := Money(10).ApplyPercent(85); got != 9 {
		t.Fatalf("got %d", got)
	}
	if got := Money(10000).ApplyPercent(85); got != 8500 {
		t.Fatalf("got %d", got)
	}
}

func TestNewServiceValidation(t *testing.T) {
	if _, err := NewService("s1", "", "Massage", 100, 60); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := NewService("s1", "Deep Tissue", "", 100, 60); err == nil {
		t.Fatal("expected error for empty specialty")
	}
	if _, err := NewService("s1", "Deep Tissue", "Massage", 0, 60); err == nil {
		t.Fatal("expected error for zero price")
	}
	if _, err := NewService("s1", "Deep Tissue", "Massage", 100, 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
	svc, err := NewService("s1", " Deep Tissue ", "Massage", 100, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Name != "Deep Tissue" {
		t.Fatalf("name not trimmed: %q", svc.Name)
	}
}

func TestStaffCanPerform(t *testing.T) {
	svc, _ := NewService("s1", "Hydrating Facial", "Facial", 9000, 45)
	staff, _ := NewStaffMember("st1", "Ana", "facial")
	if !staff.CanPerform(svc) {
		t.Fatal("specialty match should be case-insensitive")
	}
	other, _ := NewStaffMember("st2", "Mia", "Massage")
	if other.CanPerform(svc) {
		t.Fatal("specialty mismatch should not pass")
	}
}

func TestStatusTransitions(t *testing.T) {
	if !StatusBooked.CanTransitionTo(StatusCompleted) {
		t.Fatal("booked -> completed should be allowed")
	}
	if !StatusBooked.CanTransitionTo(StatusCancelled) {
		t.Fatal("booked -> cancelled should be allowed")
	}
	if StatusCompleted.CanTransitionTo(StatusCancelled) {
		t.Fatal("completed is terminal")
	}
	if StatusCancelled.CanTransitionTo(StatusBooked) {
		t.Fatal("cancelled is terminal")
	}
}
