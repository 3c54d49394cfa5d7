package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appflows/booking-flow/internal/auth"
	"github.com/appflows/booking-flow/internal/booking"
	"github.com/appflows/booking-flow/internal/schedule"
)

// memRepo is the minimal in-memory booking.Repository the handlers need.
type memRepo struct {
	providers    map[uuid.UUID]*booking.Provider
	usersByID    map[uuid.UUID]*booking.User
	usersByEmail map[string]*booking.User
	appointments map[string]*booking.Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{
		providers:    make(map[uuid.UUID]*booking.Provider),
		usersByID:    make(map[uuid.UUID]*booking.User),
		usersByEmail: make(map[string]*booking.User),
		appointments: make(map[string]*booking.Appointment),
	}
}

func (r *memRepo) key(providerID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s|%d", providerID, at.Unix())
}

func (r *memRepo) ListProviders(ctx context.Context) ([]booking.Provider, error) {
	var out []booking.Provider
	for _, p := range r.providers {
		out = append(out, *p)
	}
	return out, nil
}

func (r *memRepo) GetProviderByID(ctx context.Context, id uuid.UUID) (*booking.Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, booking.ErrProviderNotFound
	}
	return p, nil
}

func (r *memRepo) CreateUser(ctx context.Context, name, email, passwordHash string) (*booking.User, error) {
	if _, ok := r.usersByEmail[email]; ok {
		return nil, booking.ErrEmailTaken
	}
	u := &booking.User{ID: uuid.New(), Name: name, Email: email, PasswordHash: passwordHash}
	r.usersByID[u.ID] = u
	r.usersByEmail[email] = u
	return u, nil
}

func (r *memRepo) GetUserByEmail(ctx context.Context, email string) (*booking.User, error) {
	u, ok := r.usersByEmail[email]
	if !ok {
		return nil, booking.ErrUserNotFound
	}
	return u, nil
}

func (r *memRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*booking.User, error) {
	u, ok := r.usersByID[id]
	if !ok {
		return nil, booking.ErrUserNotFound
	}
	return u, nil
}

func (r *memRepo) UpdateUser(ctx context.Context, u *booking.User) (*booking.User, error) {
	stored, ok := r.usersByID[u.ID]
	if !ok {
		return nil, booking.ErrUserNotFound
	}
	delete(r.usersByEmail, stored.Email)
	*stored = *u
	r.usersByEmail[stored.Email] = stored
	return stored, nil
}

func (r *memRepo) GetAppointmentAt(ctx context.Context, providerID uuid.UUID, at time.Time) (*booking.Appointment, error) {
	a, ok := r.appointments[r.key(providerID, at)]
	if !ok {
		return nil, booking.ErrAppointmentNotFound
	}
	return a, nil
}

func (r *memRepo) ListProviderAppointmentsBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]booking.Appointment, error) {
	var out []booking.Appointment
	for _, a := range r.appointments {
		if a.ProviderID == providerID && !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) CreateAppointment(ctx context.Context, providerID, userID uuid.UUID, startsAt time.Time) (*booking.Appointment, error) {
	a := &booking.Appointment{ID: uuid.New(), ProviderID: providerID, UserID: userID, StartsAt: startsAt}
	r.appointments[r.key(providerID, startsAt)] = a
	return a, nil
}

type passLocker struct{}

func (passLocker) WithBookingLock(ctx context.Context, providerID uuid.UUID, at time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type missCache struct{}

func (missCache) Get(ctx context.Context, providerID uuid.UUID, year, month, day int) ([]schedule.Slot, bool, error) {
	return nil, false, nil
}
func (missCache) Set(ctx context.Context, providerID uuid.UUID, year, month, day int, grid []schedule.Slot) error {
	return nil
}
func (missCache) Invalidate(ctx context.Context, providerID uuid.UUID, year, month, day int) error {
	return nil
}

type testServer struct {
	handler    http.Handler
	repo       *memRepo
	tokens     *auth.Tokens
	providerID uuid.UUID
	userToken  string
	userID     uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := newMemRepo()
	svc := booking.NewService(repo, passLocker{}, missCache{})
	svc.Now = func() time.Time {
		return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	}
	tokens := auth.NewTokens("test-secret", time.Hour)

	providerID := uuid.New()
	avatar := "https://cdn.example.com/anna.png"
	repo.providers[providerID] = &booking.Provider{ID: providerID, Name: "Anna", AvatarURL: &avatar}

	u, err := svc.RegisterUser(context.Background(), "Joana", "joana@example.com", "s3cret1")
	require.NoError(t, err)

	token, err := tokens.Issue(u.ID)
	require.NoError(t, err)

	handler := NewRouter(RouterConfig{
		Service: svc,
		Tokens:  tokens,
		Env:     "test",
		Version: "test",
	})

	return &testServer{
		handler:    handler,
		repo:       repo,
		tokens:     tokens,
		providerID: providerID,
		userToken:  token,
		userID:     u.ID,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestProvidersRequireSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/providers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/providers", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListProviders(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/providers", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var providers []ProviderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &providers))
	require.Len(t, providers, 1)
	assert.Equal(t, "Anna", providers[0].Name)
	assert.Equal(t, "https://cdn.example.com/anna.png", providers[0].AvatarURL)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/sessions", "", SessionRequest{
		Email:    "joana@example.com",
		Password: "s3cret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var session SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, ts.userID, session.User.ID)

	rec = ts.do(t, http.MethodPost, "/sessions", "", SessionRequest{
		Email:    "joana@example.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterConflicts(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/users", "", RegisterRequest{
		Name:     "Other",
		Email:    "joana@example.com",
		Password: "whatever1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDayAvailability(t *testing.T) {
	ts := newTestServer(t)

	path := fmt.Sprintf("/providers/%s/day-availability?year=2024&month=6&day=10", ts.providerID)
	rec := ts.do(t, http.MethodGet, path, ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var grid []schedule.Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	require.Len(t, grid, schedule.HoursPerDay)
	assert.Equal(t, 0, grid[0].Hour)
	assert.Equal(t, 23, grid[23].Hour)
}

func TestDayAvailabilityRejectsBadParams(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing params", query: ""},
		{name: "non numeric", query: "?year=x&month=6&day=10"},
		{name: "month out of range", query: "?year=2024&month=13&day=10"},
		{name: "day out of range", query: "?year=2024&month=6&day=32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("/providers/%s/day-availability%s", ts.providerID, tt.query)
			rec := ts.do(t, http.MethodGet, path, ts.userToken, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateAppointment(t *testing.T) {
	ts := newTestServer(t)

	startsAt := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.Local)
	req := CreateAppointmentRequest{
		ProviderID: ts.providerID.String(),
		Date:       startsAt.Format(time.RFC3339),
	}

	rec := ts.do(t, http.MethodPost, "/appointments", ts.userToken, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appt))
	assert.Equal(t, ts.providerID, appt.ProviderID)
	assert.Equal(t, ts.userID, appt.UserID)
	assert.True(t, startsAt.Equal(appt.StartsAt))

	// Booking the same hour again conflicts.
	rec = ts.do(t, http.MethodPost, "/appointments", ts.userToken, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var apiErr ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "hour_taken", apiErr.Error)
}

func TestCreateAppointmentRejectsBadBodies(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/appointments", ts.userToken, CreateAppointmentRequest{
		ProviderID: "not-a-uuid",
		Date:       "2024-06-10T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments", ts.userToken, CreateAppointmentRequest{
		ProviderID: ts.providerID.String(),
		Date:       "next tuesday",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/appointments", ts.userToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/profile", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "Joana", me.Name)

	avatar := "https://cdn.example.com/joana.png"
	rec = ts.do(t, http.MethodPut, "/profile", ts.userToken, UpdateProfileRequest{
		Name:      "Joana Silva",
		Email:     "joana@example.com",
		AvatarURL: &avatar,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "Joana Silva", me.Name)
	assert.Equal(t, avatar, me.AvatarURL)
}

func TestLiveness(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
