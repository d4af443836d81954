package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPhone(t *testing.T) {
	h1 := HashPhone("555-123-4567")
	h2 := HashPhone("(555) 123 4567")
	h3 := HashPhone("555-987-6543")

	assert.Equal(t, h1, h2, "formatting should not change the hash")
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64, "SHA-256 hex should be 64 chars")
	assert.Empty(t, HashPhone("n/a"))
}

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "reach me at jane@example.com please", "reach me at [EMAIL] please"},
		{"phone", "call me at (330) 333-2654", "call me at[PHONE]"},
		{"bare phone", "555-123-4567", "[PHONE]"},
		{"both", "email: a@b.com phone: 330-333-2654", "email: [EMAIL] phone:[PHONE]"},
		{"no pii", "Fido needs his rabies shot", "Fido needs his rabies shot"},
		{"names kept", "My name is Jane Doe", "My name is Jane Doe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}
