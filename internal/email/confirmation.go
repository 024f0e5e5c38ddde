package email

import (
	"fmt"
	"strings"
	"time"
)

// Confirmation is the booking summary rendered into the confirmation
// email.
type Confirmation struct {
	ClientName    string
	ServiceName   string
	StaffName     string
	ScheduledAt   time.Time
	TotalPrice    string
	PaymentStatus string
}

func (c Confirmation) Subject() string {
	return fmt.Sprintf("Your %s appointment is booked", c.ServiceName)
}

func (c Confirmation) Body() string {
	var b strings.Builder
	name := strings.TrimSpace(c.ClientName)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your appointment is confirmed:\n\n")
	fmt.Fprintf(&b, "  Service: %s\n", c.ServiceName)
	fmt.Fprintf(&b, "  With:    %s\n", c.StaffName)
	fmt.Fprintf(&b, "  When:    %s\n", c.ScheduledAt.Format("Monday, 2 January 2006 at 15:04"))
	fmt.Fprintf(&b, "  Total:   %s", c.TotalPrice)
	if c.PaymentStatus == "paid" {
		b.WriteString(" (paid online)\n")
	} else {
		b.WriteString(" (due on site)\n")
	}
	b.WriteString("\nWe look forward to seeing you.\n")
	return b.String()
}
