// Package gateway is the HTTP implementation of flow.Gateway, talking to
// the api-server.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appflows/booking-flow/internal/flow"
	"github.com/appflows/booking-flow/internal/schedule"
)

// Session identifies the signed-in user. It is injected explicitly instead
// of living in ambient process state so clients stay testable in isolation.
type Session struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type Client struct {
	baseURL string
	session Session
	http    *http.Client
}

func NewClient(baseURL string, session Session, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		session: session,
		http:    &http.Client{Timeout: timeout},
	}
}

// SignIn exchanges credentials for a session.
func SignIn(ctx context.Context, baseURL string, timeout time.Duration, email, password string) (Session, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{}, apiError(resp)
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Session{}, fmt.Errorf("decode sign-in response: %w", err)
	}

	return Session{UserID: out.User.ID, Token: out.Token}, nil
}

func (c *Client) ListProviders(ctx context.Context) ([]flow.Provider, error) {
	var providers []flow.Provider
	if err := c.get(ctx, "/providers", &providers); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

func (c *Client) DayAvailability(ctx context.Context, providerID string, date flow.Date) ([]schedule.Slot, error) {
	path := fmt.Sprintf("/providers/%s/day-availability?year=%d&month=%d&day=%d",
		providerID, date.Year, date.Month, date.Day)

	var slots []schedule.Slot
	if err := c.get(ctx, path, &slots); err != nil {
		return nil, fmt.Errorf("day availability: %w", err)
	}
	return slots, nil
}

func (c *Client) CreateAppointment(ctx context.Context, providerID string, startsAt time.Time) (flow.Appointment, error) {
	body, _ := json.Marshal(map[string]any{
		"provider_id": providerID,
		"date":        startsAt.Format(time.RFC3339),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return flow.Appointment{}, fmt.Errorf("build appointment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return flow.Appointment{}, fmt.Errorf("create appointment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return flow.Appointment{}, apiError(resp)
	}

	var appt flow.Appointment
	if err := json.NewDecoder(resp.Body).Decode(&appt); err != nil {
		return flow.Appointment{}, fmt.Errorf("decode appointment response: %w", err)
	}

	return appt, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
}

func apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("api error %d: %s (%s)", resp.StatusCode, body.Error, body.Details)
	}

	return fmt.Errorf("api error: unexpected status %d", resp.StatusCode)
}
