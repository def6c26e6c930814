package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys
const (
	EventUserRegistered   = "user.registered"
	EventPatientCreated   = "patient.created"
	EventScreeningCreated = "screening.created"
)

const serviceName = "screening-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

type UserRegisteredEvent struct {
	BaseEvent
	Data UserRegisteredData `json:"data"`
}

type UserRegisteredData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type PatientCreatedEvent struct {
	BaseEvent
	Data PatientCreatedData `json:"data"`
}

type PatientCreatedData struct {
	PatientID string    `json:"patient_id"`
	CreatedBy string    `json:"created_by"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Gender    string    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

// ScreeningCreatedEvent is published after a screening row commits. It
// carries the derived result only; the image stays in the blob store.
type ScreeningCreatedEvent struct {
	BaseEvent
	Data ScreeningCreatedData `json:"data"`
}

type ScreeningCreatedData struct {
	ScreeningID   string    `json:"screening_id"`
	PatientID     string    `json:"patient_id"`
	CreatedBy     string    `json:"created_by"`
	Result        string    `json:"result"`
	ParasiteCount int       `json:"parasite_count"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: serviceName,
	}
}
