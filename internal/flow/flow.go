// Package flow implements the appointment scheduling flow: the state that
// keeps provider selection, date selection and the fetched day grid
// consistent with each other, and the submission of the final booking.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/appflows/booking-flow/internal/schedule"
)

// HourUnset marks that the user has not picked an hour yet.
const HourUnset = -1

var (
	ErrProvidersFetch    = errors.New("provider list fetch failed")
	ErrAvailabilityFetch = errors.New("availability fetch failed")
)

// Snapshot is an immutable view of the flow state, handed to the listener
// after every change.
type Snapshot struct {
	Providers    []Provider
	ProviderID   string
	Date         Date
	Hour         int // HourUnset until the user picks a slot
	Availability []schedule.Slot
	Morning      []schedule.DisplaySlot
	Afternoon    []schedule.DisplaySlot
}

// CanSubmit reports whether the selection is complete enough to book.
func (s Snapshot) CanSubmit() bool {
	return s.ProviderID != "" && s.Hour != HourUnset
}

// HourAvailable reports whether the current grid marks the given hour
// available. Hours missing from the grid count as unavailable. The flow
// itself never enforces this at selection time; it is for display gating.
func (s Snapshot) HourAvailable(hour int) bool {
	return schedule.AvailableAt(s.Availability, hour)
}

// Selection extracts what the submitter needs from the snapshot.
func (s Snapshot) Selection() Selection {
	return Selection{ProviderID: s.ProviderID, Date: s.Date, Hour: s.Hour}
}

// Options configure a new flow instance.
type Options struct {
	ProviderID string // entry parameter that started the flow
	Date       Date   // zero value means today
	Now        func() time.Time
	OnUpdate   func(Snapshot) // called from the flow goroutine
	OnError    func(error)    // fetch failures; state keeps its previous value
}

// Flow owns one scheduling flow instance. All state lives on the Run
// goroutine; commands and fetch completions are posted to it as events, so
// no locking is needed. A Flow is discarded when its context ends.
type Flow struct {
	gw       Gateway
	now      func() time.Time
	onUpdate func(Snapshot)
	onError  func(error)

	events chan event

	// Owned by the Run goroutine.
	providers    []Provider
	providerID   string
	date         Date
	hour         int
	availability []schedule.Slot
	morning      []schedule.DisplaySlot
	afternoon    []schedule.DisplaySlot
	fetchSeq     uint64
}

type event any

type evSelectProvider struct{ id string }
type evSelectDate struct{ date Date }
type evSelectHour struct{ hour int }
type evProviders struct {
	providers []Provider
	err       error
}
type evAvailability struct {
	seq   uint64
	slots []schedule.Slot
	err   error
}
type evSnapshot struct{ reply chan Snapshot }

func New(gw Gateway, opts Options) *Flow {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	date := opts.Date
	if date == (Date{}) {
		date = DateOf(now())
	}

	return &Flow{
		gw:         gw,
		now:        now,
		onUpdate:   opts.OnUpdate,
		onError:    opts.OnError,
		events:     make(chan event, 32),
		providerID: opts.ProviderID,
		date:       date,
		hour:       HourUnset,
	}
}

// Run drives the flow until ctx ends. It issues the one-time provider list
// fetch and the availability fetch for the seeded selection, then serves
// events. Commands must not be called before Run has started.
func (f *Flow) Run(ctx context.Context) {
	f.loadProviders(ctx)
	f.loadAvailability(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.events:
			f.handle(ctx, ev)
		}
	}
}

// SelectProvider records a new provider choice. Choosing the provider that
// is already selected is a no-op.
func (f *Flow) SelectProvider(id string) {
	f.events <- evSelectProvider{id: id}
}

// SelectDate records a new calendar day choice. The time-of-day part of the
// value the caller derived it from is already gone, Date has none.
func (f *Flow) SelectDate(date Date) {
	f.events <- evSelectDate{date: date}
}

// SelectHour records the picked hour. No fetch and no validation against
// the current grid happen here; an hour the grid marks unavailable can be
// recorded and is caught by the server at booking time.
func (f *Flow) SelectHour(hour int) {
	f.events <- evSelectHour{hour: hour}
}

// Snapshot returns a copy of the current state.
func (f *Flow) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	f.events <- evSnapshot{reply: reply}
	return <-reply
}

// Submit books the current selection. On failure the selection is left
// untouched so the caller can retry without re-selecting anything.
func (f *Flow) Submit(ctx context.Context) (BookingResult, error) {
	sub := Submitter{Gateway: f.gw}
	return sub.Submit(ctx, f.Snapshot().Selection())
}

func (f *Flow) handle(ctx context.Context, ev event) {
	switch v := ev.(type) {
	case evSelectProvider:
		if v.id == f.providerID {
			return
		}
		f.providerID = v.id
		f.loadAvailability(ctx)
		f.notify()

	case evSelectDate:
		if v.date == f.date {
			return
		}
		f.date = v.date
		f.loadAvailability(ctx)
		f.notify()

	case evSelectHour:
		f.hour = v.hour
		f.notify()

	case evProviders:
		if v.err != nil {
			f.fail(fmt.Errorf("%w: %v", ErrProvidersFetch, v.err))
			return
		}
		f.providers = v.providers
		f.notify()

	case evAvailability:
		// A fetch that is no longer the latest issued lost the race to a
		// newer selection pair; its result is dropped.
		if v.seq != f.fetchSeq {
			return
		}
		if v.err != nil {
			f.fail(fmt.Errorf("%w: %v", ErrAvailabilityFetch, v.err))
			return
		}
		f.availability = v.slots
		f.morning, f.afternoon = schedule.Partition(v.slots)
		f.notify()

	case evSnapshot:
		v.reply <- f.snapshot()
	}
}

func (f *Flow) loadProviders(ctx context.Context) {
	go func() {
		providers, err := f.gw.ListProviders(ctx)
		f.post(ctx, evProviders{providers: providers, err: err})
	}()
}

// loadAvailability issues a fetch for the current (provider, date) pair.
// In-flight fetches are never cancelled; the sequence number decides which
// completion still applies.
func (f *Flow) loadAvailability(ctx context.Context) {
	f.fetchSeq++
	seq := f.fetchSeq
	providerID, date := f.providerID, f.date

	go func() {
		slots, err := f.gw.DayAvailability(ctx, providerID, date)
		f.post(ctx, evAvailability{seq: seq, slots: slots, err: err})
	}()
}

func (f *Flow) post(ctx context.Context, ev event) {
	select {
	case f.events <- ev:
	case <-ctx.Done():
	}
}

func (f *Flow) snapshot() Snapshot {
	return Snapshot{
		Providers:    append([]Provider(nil), f.providers...),
		ProviderID:   f.providerID,
		Date:         f.date,
		Hour:         f.hour,
		Availability: append([]schedule.Slot(nil), f.availability...),
		Morning:      append([]schedule.DisplaySlot(nil), f.morning...),
		Afternoon:    append([]schedule.DisplaySlot(nil), f.afternoon...),
	}
}

func (f *Flow) notify() {
	if f.onUpdate != nil {
		f.onUpdate(f.snapshot())
	}
}

func (f *Flow) fail(err error) {
	if f.onError != nil {
		f.onError(err)
		return
	}
	log.Printf("flow fetch error: %v", err)
}
