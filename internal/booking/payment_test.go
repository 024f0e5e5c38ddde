package booking

import (
	"testing"
	"time"
)

var paymentNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func TestCardValidateAccepts(t *testing.T) {
	cards := []CardDetails{
		{Number: "4242 4242 4242 4242", Expiry: "12/28", CVV: "123"},
		{Number: "4242-4242-4242-4242", Expiry: "09/26", CVV: "000"}, // expires end of Sep 2026
		{Number: "378282246310005", Expiry: "01/30", CVV: "999"},     // 15 digits
	}
	for _, c := range cards {
		if err := c.Validate(paymentNow); err != nil {
			t.Fatalf("card %q: unexpected error %v", c.Number, err)
		}
	}
}

func TestCardValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		card CardDetails
	}{
		{"too short", CardDetails{Number: "4242", Expiry: "12/28", CVV: "123"}},
		{"bad checksum", CardDetails{Number: "4242424242424241", Expiry: "12/28", CVV: "123"}},
		{"letters", CardDetails{Number: "4242abcd42424242", Expiry: "12/28", CVV: "123"}},
		{"bad expiry format", CardDetails{Number: "4242424242424242", Expiry: "2028-12", CVV: "123"}},
		{"expired", CardDetails{Number: "4242424242424242", Expiry: "08/26", CVV: "123"}},
		{"short cvv", CardDetails{Number: "4242424242424242", Expiry: "12/28", CVV: "12"}},
		{"alpha cvv", CardDetails{Number: "4242424242424242", Expiry: "12/28", CVV: "12a"}},
	}
	for _, c := range cases {
		if err := c.card.Validate(paymentNow); !IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", c.name, err)
		}
	}
}

func TestMaskCardNumber(t *testing.T) {
	if got := MaskCardNumber("4242 4242 4242 4242"); got != "************4242" {
		t.Fatalf("got %q", got)
	}
	if got := MaskCardNumber("4242"); got != "4242" {
		t.Fatalf("got %q", got)
	}
}
