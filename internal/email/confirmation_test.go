package email

import (
	"strings"
	"testing"
	"time"
)

func TestConfirmationBody(t *testing.T) {
	c := Confirmation{
		ClientName:    "Jordan",
		ServiceName:   "Deep Tissue Massage",
		StaffName:     "Mia",
		ScheduledAt:   time.Date(2026, 9, 6, 10, 0, 0, 0, time.UTC),
		TotalPrice:    "85.00",
		PaymentStatus: "paid",
	}
	body := c.Body()
	for _, want := range []string{"Jordan", "Deep Tissue Massage", "Mia", "85.00", "paid online"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
	if subj := c.Subject(); subj != "Your Deep Tissue Massage appointment is booked" {
		t.Fatalf("subject %q", subj)
	}
}

func TestConfirmationBodyPendingPayment(t *testing.T) {
	c := Confirmation{ServiceName: "Facial", StaffName: "Ana", TotalPrice: "60.00", PaymentStatus: "pending"}
	if !strings.Contains(c.Body(), "due on site") {
		t.Fatal("pending payment should render as due on site")
	}
	if !strings.Contains(c.Body(), "Hi there,") {
		t.Fatal("missing fallback greeting")
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("no-reply@lumenspa.local", "client@example.com", "Subject", "Body")
	for _, want := range []string{"From: no-reply@lumenspa.local", "To: client@example.com", "Subject: Subject", "\r\n\r\nBody\r\n"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q", want)
		}
	}
}
