// Package interview runs a timed mock interview: it prompts each question,
// counts down, records the spoken answer, has it transcribed and, after the
// last question, has all answers scored.
package interview

import "math"

// DefaultSuggestedTimeSec is the answer time limit used when a question
// does not carry one.
const DefaultSuggestedTimeSec = 45

// Question is one prompt of an interview. Questions are fixed for the
// lifetime of a session.
type Question struct {
	ID               int    `json:"id" yaml:"id"`
	Text             string `json:"text" yaml:"text"`
	SuggestedTimeSec int    `json:"suggestedTimeSec" yaml:"suggested_time_sec"`
}

// TimeLimit returns the recording limit for q in seconds.
func (q Question) TimeLimit() int {
	if q.SuggestedTimeSec <= 0 {
		return DefaultSuggestedTimeSec
	}
	return q.SuggestedTimeSec
}

// RecordingResult is the output of one capture cycle. It lives only until
// the transcription call that consumes it returns.
type RecordingResult struct {
	Blob        []byte
	URL         string
	DurationSec int
}

// Answer is the durable record of one answered (or skipped) question.
type Answer struct {
	QuestionID       int    `json:"questionId"`
	QuestionText     string `json:"questionText"`
	Transcript       string `json:"transcript"`
	DurationSec      int    `json:"durationSec"`
	SuggestedTimeSec int    `json:"suggestedTimeSec"`
}

// QuestionScore is the evaluation of a single answer.
type QuestionScore struct {
	QuestionID   int      `json:"questionId"`
	Score        float64  `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// EvaluationResult is the scored outcome of a whole interview.
type EvaluationResult struct {
	OverallScore    float64         `json:"overallScore"`
	OverallFeedback string          `json:"overallFeedback"`
	PerQuestion     []QuestionScore `json:"perQuestion"`
}

// EvaluationRequest is what gets sent for scoring once all questions are done.
type EvaluationRequest struct {
	Company   string   `json:"company,omitempty"`
	Title     string   `json:"title,omitempty"`
	Questions []Answer `json:"questions"`
}

// NormalizeOverallScore replaces the overall score with the mean of the
// per-question scores rounded to one decimal. The upstream aggregate is
// never trusted.
func NormalizeOverallScore(r *EvaluationResult) {
	if r == nil {
		return
	}
	r.OverallScore = MeanScore(r.PerQuestion)
}

// MeanScore returns round(mean(scores), 1), or 0 for no scores.
func MeanScore(scores []QuestionScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return RoundTo(sum/float64(len(scores)), 1)
}

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
