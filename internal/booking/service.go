package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/appflows/booking-flow/internal/auth"
	"github.com/appflows/booking-flow/internal/redisclient"
	"github.com/appflows/booking-flow/internal/schedule"
)

var (
	ErrSlotTaken          = errors.New("the hour is already booked")
	ErrPastDate           = errors.New("cannot book an hour in the past")
	ErrNotOnHour          = errors.New("appointments start on the hour")
	ErrBookingContention  = errors.New("the hour is currently being booked, please retry")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Cache holds computed day grids. Implemented by redisclient.DayCache.
type Cache interface {
	Get(ctx context.Context, providerID uuid.UUID, year, month, day int) ([]schedule.Slot, bool, error)
	Set(ctx context.Context, providerID uuid.UUID, year, month, day int, grid []schedule.Slot) error
	Invalidate(ctx context.Context, providerID uuid.UUID, year, month, day int) error
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cache  Cache

	// Now is injectable for tests.
	Now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cache Cache) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cache:  cache,
		Now:    time.Now,
	}
}

func (s *Service) Providers(ctx context.Context) ([]Provider, error) {
	providers, err := s.repo.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

// DayAvailability returns the fixed 24-slot grid for the provider's day,
// serving from the cache when a fresh entry exists.
func (s *Service) DayAvailability(ctx context.Context, providerID uuid.UUID, year, month, day int) ([]schedule.Slot, error) {
	if grid, ok, err := s.cache.Get(ctx, providerID, year, month, day); err != nil {
		log.Printf("day grid cache read failed: %v", err)
	} else if ok {
		return grid, nil
	}

	from, to := dayBounds(year, month, day)
	appointments, err := s.repo.ListProviderAppointmentsBetween(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load day appointments: %w", err)
	}

	grid := DayGrid(s.Now(), year, month, day, appointments)

	if err := s.cache.Set(ctx, providerID, year, month, day, grid); err != nil {
		log.Printf("day grid cache write failed: %v", err)
	}

	return grid, nil
}

// CreateAppointment books a provider hour for a user. A distributed lock per
// (provider, instant) keeps concurrent requests for the same hour from both
// passing the conflict check.
func (s *Service) CreateAppointment(ctx context.Context, providerID, userID uuid.UUID, startsAt time.Time) (*Appointment, error) {
	if startsAt.Minute() != 0 || startsAt.Second() != 0 || startsAt.Nanosecond() != 0 {
		return nil, ErrNotOnHour
	}
	if !startsAt.After(s.Now()) {
		return nil, ErrPastDate
	}

	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, providerID, startsAt, func(lockCtx context.Context) error {
		// Inside the critical section re-check that the hour is still free.
		existing, err := s.repo.GetAppointmentAt(lockCtx, providerID, startsAt)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check hour conflict: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateAppointment(lockCtx, providerID, userID, startsAt)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingContention
		}
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, providerID, startsAt.Year(), int(startsAt.Month()), startsAt.Day()); err != nil {
		log.Printf("day grid cache invalidation failed: %v", err)
	}

	return created, nil
}

func (s *Service) RegisterUser(ctx context.Context, name, email, password string) (*User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// UpdateProfile changes name, email and avatar, and the password when a new
// one is given.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, name, email string, avatarURL *string, newPassword string) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	u.Name = name
	u.Email = email
	if avatarURL != nil {
		u.AvatarURL = avatarURL
	}

	if newPassword != "" {
		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	updated, err := s.repo.UpdateUser(ctx, u)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return updated, nil
}
