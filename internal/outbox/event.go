package outbox

// Topic names for booking lifecycle events. The Kafka topic equals the
// event type, one event kind per topic.
const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventAppointmentCompleted = "booking.appointment.completed.v1"
	EventConfirmationSent     = "booking.confirmation.sent.v1"
	EventConfirmationFailed   = "booking.confirmation.failed.v1"
)

// Event is the domain event envelope written to the outbox table inside
// the same transaction as the rows it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
