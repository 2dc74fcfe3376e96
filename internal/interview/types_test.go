package interview

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"integers", []float64{9, 7, 8}, 8.0},
		{"decimals", []float64{7, 8.5, 6}, 7.2},
		{"single", []float64{6.5}, 6.5},
		{"round half up", []float64{7, 8}, 7.5},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var qs []QuestionScore
			for i, s := range tt.scores {
				qs = append(qs, QuestionScore{QuestionID: i + 1, Score: s})
			}
			assert.Equal(t, tt.want, MeanScore(qs))
		})
	}
}

func TestNormalizeOverallScoreIgnoresUpstreamAggregate(t *testing.T) {
	r := &EvaluationResult{
		OverallScore: 9.9,
		PerQuestion:  []QuestionScore{{QuestionID: 1, Score: 4}, {QuestionID: 2, Score: 5}},
	}
	NormalizeOverallScore(r)
	assert.Equal(t, 4.5, r.OverallScore)

	NormalizeOverallScore(nil)
}

func TestQuestionTimeLimit(t *testing.T) {
	assert.Equal(t, 45, Question{ID: 1}.TimeLimit())
	assert.Equal(t, 45, Question{ID: 1, SuggestedTimeSec: -3}.TimeLimit())
	assert.Equal(t, 90, Question{ID: 1, SuggestedTimeSec: 90}.TimeLimit())
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("denied")
	mediaErr := &MediaAccessError{Err: cause}
	assert.ErrorIs(t, mediaErr, cause)
	assert.Equal(t, "microphone unavailable: denied", mediaErr.Error())

	tErr := &TranscriptionError{StatusCode: 502, Body: "bad gateway"}
	assert.Equal(t, "transcription failed: status 502: bad gateway", tErr.Error())

	format := &EvaluationError{StatusCode: 200, Err: ErrMalformedEvaluation}
	assert.True(t, format.IsFormatError())
	assert.ErrorIs(t, format, ErrMalformedEvaluation)

	transport := &EvaluationError{StatusCode: 500, Body: "boom"}
	assert.False(t, transport.IsFormatError())
	assert.Equal(t, "evaluation failed: status 500: boom", transport.Error())
}
