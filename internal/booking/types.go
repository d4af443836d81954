// Package booking implements the deterministic appointment intake dialogue.
//
// A booking moves through a fixed sequence of steps (owner name, pet name,
// phone, preferred date/time, confirmation). The Machine is pure: it takes the
// current State and one utterance and returns the next State along with the
// reply text. Persistence is left to the caller.
package booking

import (
	"errors"
	"fmt"
	"time"
)

// Step identifies where a booking dialogue currently is.
type Step string

const (
	StepIdle               Step = "idle"
	StepCollectingOwner    Step = "collecting_owner"
	StepCollectingPet      Step = "collecting_pet"
	StepCollectingPhone    Step = "collecting_phone"
	StepCollectingDateTime Step = "collecting_datetime"
	StepConfirming         Step = "confirming"
)

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	switch s {
	case StepIdle, StepCollectingOwner, StepCollectingPet, StepCollectingPhone,
		StepCollectingDateTime, StepConfirming:
		return true
	}
	return false
}

// Steps lists every step in dialogue order.
func Steps() []Step {
	return []Step{StepIdle, StepCollectingOwner, StepCollectingPet, StepCollectingPhone, StepCollectingDateTime, StepConfirming}
}

var (
	// ErrNotActive is returned when input is fed to a booking that has not started.
	ErrNotActive = errors.New("booking: not active")
	// ErrInvalidState is returned when a stored state breaks the booking invariants.
	ErrInvalidState = errors.New("booking: invalid state")
)

// CollectedData holds the fields gathered so far. Empty strings and a nil
// PreferredDateTime mean the field has not been supplied.
type CollectedData struct {
	OwnerName         string     `json:"ownerName,omitempty" bson:"ownerName,omitempty"`
	PetName           string     `json:"petName,omitempty" bson:"petName,omitempty"`
	Phone             string     `json:"phone,omitempty" bson:"phone,omitempty"`
	PreferredDateTime *time.Time `json:"preferredDateTime,omitempty" bson:"preferredDateTime,omitempty"`
}

// IsEmpty reports whether no field has been collected.
func (d CollectedData) IsEmpty() bool {
	return d.OwnerName == "" && d.PetName == "" && d.Phone == "" && d.PreferredDateTime == nil
}

// Complete reports whether every field needed for an appointment is present.
func (d CollectedData) Complete() bool {
	return d.OwnerName != "" && d.PetName != "" && d.Phone != "" && d.PreferredDateTime != nil
}

// State is the booking dialogue state embedded in a conversation.
type State struct {
	Active bool          `json:"isActive" bson:"isActive"`
	Step   Step          `json:"currentStep" bson:"currentStep"`
	Data   CollectedData `json:"collectedData" bson:"collectedData"`
	// BookingRef identifies one run of the dialogue. The appointment created
	// on confirmation carries it so a retried confirmation is not booked twice.
	BookingRef string    `json:"bookingRef,omitempty" bson:"bookingRef,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Idle returns the zero booking state.
func Idle() State {
	return State{Step: StepIdle}
}

// Normalize maps the zero Step to idle so freshly decoded records validate.
func (s State) Normalize() State {
	if s.Step == "" {
		s.Step = StepIdle
	}
	return s
}

// Validate checks the booking invariants: an inactive booking is idle with no
// data, an active one is past idle, and confirming requires every field.
func (s State) Validate() error {
	if !s.Step.Valid() {
		return fmt.Errorf("%w: unknown step %q", ErrInvalidState, s.Step)
	}
	if !s.Active {
		if s.Step != StepIdle {
			return fmt.Errorf("%w: inactive booking at step %s", ErrInvalidState, s.Step)
		}
		if !s.Data.IsEmpty() {
			return fmt.Errorf("%w: inactive booking carries data", ErrInvalidState)
		}
		return nil
	}
	if s.Step == StepIdle {
		return fmt.Errorf("%w: active booking at idle", ErrInvalidState)
	}
	if s.Step == StepConfirming && !s.Data.Complete() {
		return fmt.Errorf("%w: confirming without all fields", ErrInvalidState)
	}
	return nil
}

// Context carries caller-supplied hints used to pre-fill the booking.
type Context struct {
	UserName string
	PetName  string
}

// Draft is the appointment payload produced by a confirmed booking.
type Draft struct {
	SessionID         string
	BookingRef        string
	OwnerName         string
	PetName           string
	Phone             string
	PreferredDateTime time.Time
}

// Result is the outcome of one machine transition.
type Result struct {
	Response string
	Next     State
	// Appointment is set only on the confirming "yes" transition.
	Appointment *Draft
	// Complete is true when the dialogue ended, either booked or cancelled.
	Complete bool
}
