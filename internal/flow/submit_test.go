package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRequiresCompleteSelection(t *testing.T) {
	gw := newFakeGateway()
	sub := Submitter{Gateway: gw}

	tests := []struct {
		name string
		sel  Selection
	}{
		{name: "no provider", sel: Selection{ProviderID: "", Date: Date{2024, 6, 10}, Hour: 9}},
		{name: "no hour", sel: Selection{ProviderID: "p1", Date: Date{2024, 6, 10}, Hour: HourUnset}},
		{name: "nothing", sel: Selection{Hour: HourUnset}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sub.Submit(context.Background(), tt.sel)
			assert.ErrorIs(t, err, ErrSelectionIncomplete)
		})
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Empty(t, gw.created, "incomplete selections must never reach the gateway")
}

func TestSubmitComposesLocalTimestamp(t *testing.T) {
	gw := newFakeGateway()
	sub := Submitter{Gateway: gw}

	result, err := sub.Submit(context.Background(), Selection{
		ProviderID: "p1",
		Date:       Date{2024, 6, 10},
		Hour:       9,
	})
	require.NoError(t, err)

	want := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.Local)
	assert.Equal(t, want.UnixMilli(), result.DateMillis)
	assert.Equal(t, "p1", result.Appointment.ProviderID)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Len(t, gw.created, 1)
	assert.True(t, want.Equal(gw.created[0].StartsAt))
	assert.Zero(t, gw.created[0].StartsAt.Minute())
	assert.Zero(t, gw.created[0].StartsAt.Second())
}

func TestSubmitCollapsesGatewayFailures(t *testing.T) {
	gw := newFakeGateway()
	gw.createErr = errors.New("409 slot taken")
	sub := Submitter{Gateway: gw}

	sel := Selection{ProviderID: "p1", Date: Date{2024, 6, 10}, Hour: 9}

	_, err := sub.Submit(context.Background(), sel)
	assert.ErrorIs(t, err, ErrSchedulingFailed)

	// Selection values are inputs, not state; nothing about them changed,
	// so an immediate retry sends the identical request.
	gw.createErr = nil
	result, err := sub.Submit(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, sel.Date.At(sel.Hour).UnixMilli(), result.DateMillis)
}

func TestDateOfTruncatesTimeOfDay(t *testing.T) {
	at := time.Date(2024, time.June, 10, 17, 42, 31, 12, time.Local)
	assert.Equal(t, Date{2024, 6, 10}, DateOf(at))
	assert.Equal(t, "2024-06-10", DateOf(at).String())
}
