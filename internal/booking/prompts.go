package booking

import (
	"fmt"
	"time"
)

const (
	promptOwner    = "I'd be happy to help you book an appointment! Let's get started. What is the pet owner's full name?"
	promptPet      = "Great! And what is your pet's name?"
	promptPhone    = "Perfect! What phone number can we reach you at for appointment confirmation?"
	promptDateTime = "Almost done! When would you prefer to schedule the appointment? Please provide a date and time (e.g., '2024-01-15 14:00' or 'tomorrow at 2pm')."

	retryOwner    = "Please provide a valid name (at least 2 characters)."
	retryPet      = "Please provide your pet's name (at least 2 characters)."
	retryPhone    = "Please provide a valid phone number (e.g., 555-123-4567 or 5551234567)."
	retryDateTime = "I couldn't understand that date/time. Please try again (e.g., '2024-01-15 14:00' or 'tomorrow at 10am')."
	retryConfirm  = "Please confirm by saying 'yes' to book this appointment, or 'no' to cancel and start over."

	cancelledMessage = "No problem! The booking has been cancelled. Feel free to ask any veterinary questions or start a new booking whenever you're ready."
)

const displayLayout = "Monday, January 2, 2006 at 3:04 PM MST"

// PromptFor returns the question asked on entering step. A known owner name
// turns the owner prompt into the pet prompt.
func PromptFor(step Step, data CollectedData) string {
	switch step {
	case StepCollectingOwner:
		if data.OwnerName != "" {
			return promptPet
		}
		return promptOwner
	case StepCollectingPet:
		return promptPet
	case StepCollectingPhone:
		return promptPhone
	case StepCollectingDateTime:
		return promptDateTime
	case StepConfirming:
		return confirmationMessage(data, time.UTC)
	}
	return ""
}

func retryPrompt(step Step) string {
	switch step {
	case StepCollectingOwner:
		return retryOwner
	case StepCollectingPet:
		return retryPet
	case StepCollectingPhone:
		return retryPhone
	case StepCollectingDateTime:
		return retryDateTime
	case StepConfirming:
		return retryConfirm
	}
	return ""
}

func confirmationMessage(data CollectedData, loc *time.Location) string {
	return fmt.Sprintf("Perfect! Let me confirm your appointment details:\n\n📋 **Booking Summary:**\n- Pet Owner: %s\n- Pet: %s\n- Phone: %s\n- Preferred Date/Time: %s\n\nIs this information correct? (Reply 'yes' to confirm or 'no' to start over)",
		data.OwnerName, data.PetName, data.Phone, formatWhen(data.PreferredDateTime, loc))
}

func bookedMessage(data CollectedData, loc *time.Location) string {
	return fmt.Sprintf("Wonderful! Your appointment has been booked successfully!\n\n📅 **Appointment Details:**\n- Pet Owner: %s\n- Pet: %s\n- Phone: %s\n- Date/Time: %s\n\nWe'll contact you at %s to confirm. Is there anything else I can help you with?",
		data.OwnerName, data.PetName, data.Phone, formatWhen(data.PreferredDateTime, loc), data.Phone)
}

func formatWhen(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "N/A"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayLayout)
}
