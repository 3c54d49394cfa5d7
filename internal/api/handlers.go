package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/appflows/booking-flow/internal/auth"
	"github.com/appflows/booking-flow/internal/booking"
)

var validate = validator.New()

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("could not parse JSON")
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func registerHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		u, err := svc.RegisterUser(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, booking.ErrEmailTaken) {
				writeError(w, http.StatusConflict, "email_taken", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, userResponse(u))
	}
}

func sessionHandler(svc *booking.Service, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SessionRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		u, err := svc.AuthenticateUser(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, booking.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		token, err := tokens.Issue(u.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, SessionResponse{
			Token: token,
			User:  userResponse(u),
		})
	}
}

func listProvidersHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := svc.Providers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]ProviderResponse, 0, len(providers))
		for _, p := range providers {
			resp = append(resp, ProviderResponse{
				ID:        p.ID,
				Name:      p.Name,
				AvatarURL: deref(p.AvatarURL),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func dayAvailabilityHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		year, errY := strconv.Atoi(r.URL.Query().Get("year"))
		month, errM := strconv.Atoi(r.URL.Query().Get("month"))
		day, errD := strconv.Atoi(r.URL.Query().Get("day"))
		if errY != nil || errM != nil || errD != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "year, month and day query parameters are required integers")
			return
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			writeError(w, http.StatusBadRequest, "invalid_date", fmt.Sprintf("no such calendar day: %04d-%02d-%02d", year, month, day))
			return
		}

		grid, err := svc.DayAvailability(r.Context(), providerID, year, month, day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, grid)
	}
}

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "sign in to book an appointment")
			return
		}

		var req CreateAppointmentRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		startsAt, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be RFC 3339")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), providerID, userID, startsAt.In(time.Local))
		if err != nil {
			handleCreateError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{
			ID:         appt.ID,
			ProviderID: appt.ProviderID,
			UserID:     appt.UserID,
			StartsAt:   appt.StartsAt,
		})
	}
}

func getProfileHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "sign in to view the profile")
			return
		}

		u, err := svc.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, booking.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, "user_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, userResponse(u))
	}
}

func updateProfileHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "sign in to edit the profile")
			return
		}

		var req UpdateProfileRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		u, err := svc.UpdateProfile(r.Context(), userID, req.Name, req.Email, req.AvatarURL, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, booking.ErrUserNotFound):
				writeError(w, http.StatusNotFound, "user_not_found", err.Error())
			case errors.Is(err, booking.ErrEmailTaken):
				writeError(w, http.StatusConflict, "email_taken", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, userResponse(u))
	}
}

func handleCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, booking.ErrNotOnHour):
		writeError(w, http.StatusBadRequest, "not_on_hour", err.Error())
	case errors.Is(err, booking.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "hour_taken", err.Error())
	case errors.Is(err, booking.ErrBookingContention):
		writeError(w, http.StatusConflict, "hour_being_booked", "the hour is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func userResponse(u *booking.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: deref(u.AvatarURL),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
