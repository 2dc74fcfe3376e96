package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAudioContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"", true},
		{"audio/webm;codecs=opus", true},
		{"audio/wav", true},
		{"video/webm", true},
		{"application/octet-stream", true},
		{"text/plain", false},
		{"image/png", false},
		{";;", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAudioContentType(tt.contentType), tt.contentType)
	}
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "Acme Corp", SanitizeLabel("  Acme \t\n Corp  "))
	assert.Equal(t, "BackendEngineer", SanitizeLabel("Backend\x00Engineer"))
	assert.Equal(t, "", SanitizeLabel(" \n "))
	assert.Len(t, []rune(SanitizeLabel(strings.Repeat("é", 500))), MaxLabelLength)
}
