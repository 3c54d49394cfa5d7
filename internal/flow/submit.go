package flow

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrSelectionIncomplete means the booking was attempted before both a
	// provider and an hour were selected.
	ErrSelectionIncomplete = errors.New("provider and hour must be selected")

	// ErrSchedulingFailed covers every downstream booking failure. The
	// gateway does not distinguish network errors, validation rejections
	// and taken slots to this layer, so neither does the outcome.
	ErrSchedulingFailed = errors.New("could not schedule the appointment")
)

// Selection is the part of the flow state a booking is composed from.
type Selection struct {
	ProviderID string
	Date       Date
	Hour       int
}

// BookingResult is the successful outcome of a submission. DateMillis is
// the finalized appointment instant in epoch milliseconds, the payload the
// confirmation screen receives.
type BookingResult struct {
	Appointment Appointment
	DateMillis  int64
}

// Submitter composes and sends the booking request for a completed
// selection.
type Submitter struct {
	Gateway Gateway
}

// Submit books the selection: the calendar day combined with the selected
// hour, minutes and seconds zero, local time. Any gateway failure collapses
// into ErrSchedulingFailed; the caller keeps its selection and may retry.
func (s Submitter) Submit(ctx context.Context, sel Selection) (BookingResult, error) {
	if sel.ProviderID == "" || sel.Hour == HourUnset {
		return BookingResult{}, ErrSelectionIncomplete
	}

	startsAt := sel.Date.At(sel.Hour)

	appt, err := s.Gateway.CreateAppointment(ctx, sel.ProviderID, startsAt)
	if err != nil {
		return BookingResult{}, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}

	return BookingResult{
		Appointment: appt,
		DateMillis:  startsAt.UnixMilli(),
	}, nil
}
