package archive

import "time"

const recordVersion = "1.0"

// TranscriptRecord is the document archived for a finished booking dialogue.
type TranscriptRecord struct {
	Version         string    `json:"version"`
	SessionID       string    `json:"session_id"`
	Source          string    `json:"source,omitempty"`
	PetName         string    `json:"pet_name,omitempty"`
	PhoneHash       string    `json:"phone_hash,omitempty"`
	AppointmentIDs  []string  `json:"appointment_ids,omitempty"`
	Outcome         string    `json:"outcome"`
	StartedAt       time.Time `json:"started_at"`
	ArchivedAt      time.Time `json:"archived_at"`
	DurationSeconds int       `json:"duration_seconds"`
	MessageCount    int       `json:"message_count"`
	Messages        []Message `json:"messages"`
}

// Message is a single conversation turn with contact details scrubbed.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	Key          string `json:"key"`
	Outcome      string `json:"outcome"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}
