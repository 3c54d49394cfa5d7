package flow

import (
	"context"
	"time"

	"github.com/appflows/booking-flow/internal/schedule"
)

// Provider is a bookable provider as the gateway lists them.
type Provider struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Appointment is the record the gateway returns for a created booking.
type Appointment struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	StartsAt   time.Time `json:"starts_at"`
}

// Gateway is the service boundary the scheduling flow talks to. The HTTP
// implementation lives in internal/gateway; tests supply fakes.
type Gateway interface {
	ListProviders(ctx context.Context) ([]Provider, error)
	DayAvailability(ctx context.Context, providerID string, date Date) ([]schedule.Slot, error)
	CreateAppointment(ctx context.Context, providerID string, startsAt time.Time) (Appointment, error)
}
