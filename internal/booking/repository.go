package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrEmailTaken          = errors.New("email address already in use")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	ListProviders(ctx context.Context) ([]Provider, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateUser(ctx context.Context, u *User) (*User, error)

	// For conflict checks and grid building
	GetAppointmentAt(ctx context.Context, providerID uuid.UUID, at time.Time) (*Appointment, error)
	ListProviderAppointmentsBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	CreateAppointment(ctx context.Context, providerID, userID uuid.UUID, startsAt time.Time) (*Appointment, error)
}
