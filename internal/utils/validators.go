package utils

import (
	"mime"
	"strings"
	"unicode"
)

// MaxLabelLength bounds company and role names stored with an interview.
const MaxLabelLength = 120

// IsAudioContentType reports whether an uploaded part may hold recorded
// audio. Browsers label MediaRecorder output as audio/* or video/webm; some
// clients send no type or a generic binary one.
func IsAudioContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		return true
	case mediaType == "video/webm", mediaType == "video/mp4", mediaType == "application/octet-stream":
		return true
	}
	return false
}

// SanitizeLabel trims s, drops control characters, collapses runs of
// whitespace and cuts it to MaxLabelLength runes.
func SanitizeLabel(s string) string {
	var b strings.Builder
	space := false
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if n == MaxLabelLength {
			break
		}
		switch {
		case unicode.IsSpace(r):
			if space {
				continue
			}
			space = true
			r = ' '
		case unicode.IsControl(r):
			continue
		default:
			space = false
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}
