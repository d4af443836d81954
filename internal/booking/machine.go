package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Machine drives the booking dialogue. It holds no per-session data and is
// safe for concurrent use.
type Machine struct {
	now    func() time.Time
	loc    *time.Location
	newRef func() string
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source used for "now".
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLocation sets the clinic timezone used to interpret and display times.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithRefGenerator overrides how booking references are minted.
func WithRefGenerator(fn func() string) Option {
	return func(m *Machine) {
		if fn != nil {
			m.newRef = fn
		}
	}
}

// New creates a Machine.
func New(opts ...Option) *Machine {
	m := &Machine{
		now:    time.Now,
		loc:    time.UTC,
		newRef: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Location returns the timezone the machine formats times in.
func (m *Machine) Location() *time.Location {
	return m.loc
}

// Start begins a fresh booking. Owner and pet names known from bctx are
// pre-filled and the dialogue skips to the first missing field.
func (m *Machine) Start(bctx Context) Result {
	data := CollectedData{
		OwnerName: strings.TrimSpace(bctx.UserName),
		PetName:   strings.TrimSpace(bctx.PetName),
	}

	step := StepCollectingOwner
	switch {
	case data.OwnerName != "" && data.PetName != "":
		step = StepCollectingPhone
	case data.OwnerName != "":
		step = StepCollectingPet
	}

	return Result{
		Response: PromptFor(step, data),
		Next: State{
			Active:     true,
			Step:       step,
			Data:       data,
			BookingRef: m.newRef(),
			UpdatedAt:  m.now(),
		},
	}
}

// Advance consumes one utterance. Invalid input leaves Step and Data as they
// were and returns a re-prompt. The confirming step is the only one that can
// produce an appointment draft.
func (m *Machine) Advance(state State, input, sessionID string) (Result, error) {
	state = state.Normalize()
	if err := state.Validate(); err != nil {
		return Result{}, err
	}
	if !state.Active {
		return Result{}, ErrNotActive
	}

	now := m.now()
	stay := func() Result {
		next := state
		next.UpdatedAt = now
		return Result{Response: retryPrompt(state.Step), Next: next}
	}
	move := func(step Step, data CollectedData) Result {
		next := State{Active: true, Step: step, Data: data, BookingRef: state.BookingRef, UpdatedAt: now}
		resp := PromptFor(step, data)
		if step == StepConfirming {
			resp = confirmationMessage(data, m.loc)
		}
		return Result{Response: resp, Next: next}
	}

	data := state.Data
	switch state.Step {
	case StepCollectingOwner:
		if !ValidName(input) {
			return stay(), nil
		}
		data.OwnerName = strings.TrimSpace(input)
		if data.PetName != "" {
			return move(StepCollectingPhone, data), nil
		}
		return move(StepCollectingPet, data), nil

	case StepCollectingPet:
		if !ValidName(input) {
			return stay(), nil
		}
		data.PetName = strings.TrimSpace(input)
		return move(StepCollectingPhone, data), nil

	case StepCollectingPhone:
		if !ValidPhone(input) {
			return stay(), nil
		}
		data.Phone = strings.TrimSpace(input)
		return move(StepCollectingDateTime, data), nil

	case StepCollectingDateTime:
		when := ParseFutureDateTime(input, now, m.loc)
		if when == nil {
			return stay(), nil
		}
		data.PreferredDateTime = when
		return move(StepConfirming, data), nil

	case StepConfirming:
		done := Idle()
		done.UpdatedAt = now
		switch {
		case IsAffirmative(input):
			ref := state.BookingRef
			if ref == "" {
				ref = m.newRef()
			}
			return Result{
				Response: bookedMessage(data, m.loc),
				Next:     done,
				Appointment: &Draft{
					SessionID:         sessionID,
					BookingRef:        ref,
					OwnerName:         data.OwnerName,
					PetName:           data.PetName,
					Phone:             data.Phone,
					PreferredDateTime: *data.PreferredDateTime,
				},
				Complete: true,
			}, nil
		case IsNegative(input):
			return Result{Response: cancelledMessage, Next: done, Complete: true}, nil
		}
		return stay(), nil
	}

	return Result{}, fmt.Errorf("%w: unhandled step %q", ErrInvalidState, state.Step)
}
