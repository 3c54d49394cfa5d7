package booking

import (
	"time"

	"github.com/google/uuid"
)

type Provider struct {
	ID        uuid.UUID
	Name      string
	AvatarURL *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Appointment struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	UserID     uuid.UUID
	StartsAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
