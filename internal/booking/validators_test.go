package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{" ", false},
		{"a", false},
		{"  a  ", false},
		{"é", false},
		{"Al", true},
		{"  Jo ", true},
		{"Jane Doe", true},
		{"李明", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidName(tt.input), "ValidName(%q)", tt.input)
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"555-123-4567", true},
		{"5551234567", true},
		{"(555) 123.4567", true},
		{"+1 555 123 4567", true},
		{"1234567", true},
		{"555\u00a0123\u00a04567", true},
		{"555\v123\f4567", true},
		{"\u2007+1\u202f555-123-4567\t", true},
		{"123456789012345", true},
		{"123", false},
		{"123456", false},
		{"1234567890123456", false},
		{"555-CALL-NOW", false},
		{"++15551234567", false},
		{"555+1234567", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidPhone(tt.input), "ValidPhone(%q)", tt.input)
	}
}

func TestConfirmationMatching(t *testing.T) {
	assert.True(t, IsAffirmative("Yes please"))
	assert.True(t, IsAffirmative("that's CORRECT"))
	assert.True(t, IsAffirmative("confirm"))
	assert.True(t, IsAffirmative("yesterday"), "substring match is intentionally loose")
	assert.False(t, IsAffirmative("maybe"))

	assert.True(t, IsNegative("No thanks"))
	assert.True(t, IsNegative("cancel it"))
	assert.True(t, IsNegative("let's RESTART"))
	assert.True(t, IsNegative("I don't know"), "substring match is intentionally loose")
	assert.False(t, IsNegative("maybe"))
}
