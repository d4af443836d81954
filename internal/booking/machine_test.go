package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestMachine() *Machine {
	return New(
		WithClock(func() time.Time { return fixedNow }),
		WithRefGenerator(func() string { return "ref-1" }),
	)
}

func TestStart_SkipsKnownFields(t *testing.T) {
	m := newTestMachine()

	tests := []struct {
		name     string
		ctx      Context
		wantStep Step
		wantText string
	}{
		{"nothing known", Context{}, StepCollectingOwner, promptOwner},
		{"owner known", Context{UserName: "Amy"}, StepCollectingPet, promptPet},
		{"owner and pet known", Context{UserName: "Amy", PetName: "Rex"}, StepCollectingPhone, promptPhone},
		{"pet only", Context{PetName: "Rex"}, StepCollectingOwner, promptOwner},
		{"blank names ignored", Context{UserName: "  ", PetName: " "}, StepCollectingOwner, promptOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Start(tt.ctx)
			assert.Equal(t, tt.wantStep, res.Next.Step)
			assert.Equal(t, tt.wantText, res.Response)
			assert.True(t, res.Next.Active)
			assert.Equal(t, "ref-1", res.Next.BookingRef)
			assert.Nil(t, res.Appointment)
			require.NoError(t, res.Next.Validate())
		})
	}
}

func TestStart_PrefillsContext(t *testing.T) {
	res := newTestMachine().Start(Context{UserName: "Amy", PetName: "Rex"})
	assert.Equal(t, StepCollectingPhone, res.Next.Step)
	assert.Equal(t, CollectedData{OwnerName: "Amy", PetName: "Rex"}, res.Next.Data)
}

func TestAdvance_OwnerSkipsPetWhenKnown(t *testing.T) {
	m := newTestMachine()
	state := State{Active: true, Step: StepCollectingOwner, Data: CollectedData{PetName: "Rex"}, BookingRef: "ref-1"}

	res, err := m.Advance(state, "Amy Smith", "sess")
	require.NoError(t, err)
	assert.Equal(t, StepCollectingPhone, res.Next.Step)
	assert.Equal(t, promptPhone, res.Response)
	assert.Equal(t, "Amy Smith", res.Next.Data.OwnerName)
}

func drive(t *testing.T, m *Machine, inputs ...string) (State, []Result) {
	t.Helper()
	state := m.Start(Context{}).Next
	var results []Result
	for _, in := range inputs {
		res, err := m.Advance(state, in, "sess-1")
		require.NoError(t, err)
		results = append(results, res)
		state = res.Next
	}
	return state, results
}

func TestAdvance_FullFlowYes(t *testing.T) {
	m := newTestMachine()
	final, results := drive(t, m, "  Jane Doe ", "Fido", "555-111-2222", "2099-01-01 10:00", "yes")

	drafts := 0
	for _, r := range results {
		if r.Appointment != nil {
			drafts++
		}
	}
	require.Equal(t, 1, drafts)

	last := results[len(results)-1]
	require.NotNil(t, last.Appointment)
	assert.True(t, last.Complete)
	assert.Equal(t, Draft{
		SessionID:         "sess-1",
		BookingRef:        "ref-1",
		OwnerName:         "Jane Doe",
		PetName:           "Fido",
		Phone:             "555-111-2222",
		PreferredDateTime: time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC),
	}, *last.Appointment)
	assert.Contains(t, last.Response, "booked successfully")
	assert.Contains(t, last.Response, "We'll contact you at 555-111-2222")

	assert.False(t, final.Active)
	assert.Equal(t, StepIdle, final.Step)
	assert.True(t, final.Data.IsEmpty())
	assert.NoError(t, final.Validate())
}

func TestAdvance_FullFlowNo(t *testing.T) {
	m := newTestMachine()
	final, results := drive(t, m, "Jane Doe", "Fido", "555-111-2222", "2099-01-01 10:00", "No, cancel that")

	for _, r := range results {
		assert.Nil(t, r.Appointment)
	}
	last := results[len(results)-1]
	assert.True(t, last.Complete)
	assert.Equal(t, cancelledMessage, last.Response)
	assert.Equal(t, Idle().Step, final.Step)
	assert.False(t, final.Active)
	assert.True(t, final.Data.IsEmpty())
}

func TestAdvance_ConfirmationSummary(t *testing.T) {
	m := newTestMachine()
	_, results := drive(t, m, "Jane Doe", "Fido", "555-111-2222", "2099-01-01 10:00")

	summary := results[len(results)-1]
	assert.Equal(t, StepConfirming, summary.Next.Step)
	for _, want := range []string{"Jane Doe", "Fido", "555-111-2222", "January 1, 2099", "10:00 AM"} {
		assert.Contains(t, summary.Response, want)
	}
}

func TestAdvance_AmbiguousConfirmationRePrompts(t *testing.T) {
	m := newTestMachine()
	confirming, _ := drive(t, m, "Jane Doe", "Fido", "555-111-2222", "2099-01-01 10:00")

	res, err := m.Advance(confirming, "hmm maybe", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, retryConfirm, res.Response)
	assert.Equal(t, confirming.Step, res.Next.Step)
	assert.Equal(t, confirming.Data, res.Next.Data)
	assert.Nil(t, res.Appointment)
	assert.False(t, res.Complete)
}

func TestAdvance_YesCheckedBeforeNo(t *testing.T) {
	m := newTestMachine()
	confirming, _ := drive(t, m, "Jane Doe", "Fido", "555-111-2222", "2099-01-01 10:00")

	res, err := m.Advance(confirming, "yes, no changes", "sess-1")
	require.NoError(t, err)
	assert.NotNil(t, res.Appointment)
}

func TestAdvance_InvalidInputLeavesStateUnchanged(t *testing.T) {
	m := newTestMachine()
	when := time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state State
		input string
		retry string
	}{
		{"owner", State{Active: true, Step: StepCollectingOwner}, "J", retryOwner},
		{"pet", State{Active: true, Step: StepCollectingPet, Data: CollectedData{OwnerName: "Jane"}}, " ", retryPet},
		{"phone", State{Active: true, Step: StepCollectingPhone, Data: CollectedData{OwnerName: "Jane", PetName: "Fido"}}, "123", retryPhone},
		{"datetime", State{Active: true, Step: StepCollectingDateTime, Data: CollectedData{OwnerName: "Jane", PetName: "Fido", Phone: "5551112222"}}, "2020-01-01", retryDateTime},
		{"confirming", State{Active: true, Step: StepConfirming, Data: CollectedData{OwnerName: "Jane", PetName: "Fido", Phone: "5551112222", PreferredDateTime: &when}}, "perhaps", retryConfirm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.state
			res, err := m.Advance(tt.state, tt.input, "sess")
			require.NoError(t, err)
			assert.Equal(t, tt.retry, res.Response)
			assert.Equal(t, before.Step, res.Next.Step)
			assert.Equal(t, before.Data, res.Next.Data)
			assert.Equal(t, before.Active, res.Next.Active)
			assert.Nil(t, res.Appointment)
		})
	}
}

func TestAdvance_RejectsInactiveAndBrokenStates(t *testing.T) {
	m := newTestMachine()

	_, err := m.Advance(Idle(), "hello", "sess")
	assert.ErrorIs(t, err, ErrNotActive)

	_, err = m.Advance(State{}, "hello", "sess")
	assert.ErrorIs(t, err, ErrNotActive, "zero state normalizes to idle")

	_, err = m.Advance(State{Active: true, Step: StepConfirming, Data: CollectedData{OwnerName: "Jane"}}, "yes", "sess")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = m.Advance(State{Active: false, Step: StepIdle, Data: CollectedData{OwnerName: "Jane"}}, "yes", "sess")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = m.Advance(State{Active: true, Step: "bogus"}, "yes", "sess")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAdvance_GeneratesRefForLegacyState(t *testing.T) {
	m := newTestMachine()
	when := time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)
	state := State{Active: true, Step: StepConfirming, Data: CollectedData{OwnerName: "Jane", PetName: "Fido", Phone: "5551112222", PreferredDateTime: &when}}

	res, err := m.Advance(state, "yes", "sess")
	require.NoError(t, err)
	require.NotNil(t, res.Appointment)
	assert.Equal(t, "ref-1", res.Appointment.BookingRef)
}

func TestPromptFor_OwnerShortcut(t *testing.T) {
	assert.Equal(t, promptPet, PromptFor(StepCollectingOwner, CollectedData{OwnerName: "Amy"}))
	assert.Equal(t, promptOwner, PromptFor(StepCollectingOwner, CollectedData{}))
	assert.Empty(t, PromptFor(StepIdle, CollectedData{}))
}

func TestDisplayUsesMachineLocation(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	m := New(WithClock(func() time.Time { return fixedNow }), WithLocation(loc))
	state := State{Active: true, Step: StepCollectingDateTime, Data: CollectedData{OwnerName: "Jane", PetName: "Fido", Phone: "5551112222"}}

	res, err := m.Advance(state, "2099-01-01 10:00", "sess")
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.Response, "10:00 AM EST"), res.Response)
}
