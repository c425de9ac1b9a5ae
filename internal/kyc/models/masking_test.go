package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLastFour(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   string
	}{
		{"full aadhaar", "123456789012", "9012"},
		{"exactly four", "9012", "9012"},
		{"three chars", "901", ""},
		{"empty", "", ""},
		{"pan", "ABCDE1234F", "234F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastFour(tt.number))
		})
	}
}

func TestMaskedNumber(t *testing.T) {
	assert.Equal(t, "********9012", MaskedNumber("9012"))
	assert.Equal(t, "****", MaskedNumber(""))
}

func TestMaskingExposesOnlySuffix(t *testing.T) {
	number := "123456789012"
	masked := MaskedNumber(LastFour(number))
	assert.Equal(t, "********9012", masked)
	assert.NotContains(t, masked, number[:8], "prefix must not be recoverable")
}

func TestValidPAN(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"ABCDE1234F", true},
		{"abcde1234f", true}, // normalized before checking
		{"ABCDE1234", false},
		{"ABCDE12345", false},
		{"1BCDE1234F", false},
		{"ABCDE1234FX", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidPAN(tt.number), "pan %q", tt.number)
	}
}

func TestDocumentStateMachine(t *testing.T) {
	assert.True(t, DocumentStatusPending.CanTransitionTo(DocumentStatusVerified))
	assert.True(t, DocumentStatusPending.CanTransitionTo(DocumentStatusFailed))
	assert.False(t, DocumentStatusVerified.CanTransitionTo(DocumentStatusFailed))
	assert.False(t, DocumentStatusFailed.CanTransitionTo(DocumentStatusVerified))
	assert.False(t, DocumentStatusVerified.CanTransitionTo(DocumentStatusPending))
	assert.False(t, DocumentStatusPending.CanTransitionTo(DocumentStatusPending))
}
