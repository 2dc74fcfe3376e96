// Package metrics derives delivery measurements from answered questions:
// how much was said, how fast, and how much of the time was used.
package metrics

import (
	"sort"
	"strings"
	"unicode"

	"prepai-go/internal/interview"
)

// MetricResult is one measurement. Calculated is false when the answer does
// not carry enough information for it (e.g. no recorded duration).
type MetricResult struct {
	Value      float64 `json:"value"`
	Calculated bool    `json:"calculated"`
	SampleSize int     `json:"sampleSize,omitempty"`
}

// Metric keys.
const (
	WordCount       = "word_count"
	WordsPerMinute  = "words_per_minute"
	TimeUtilization = "time_utilization"
	FillerWords     = "filler_words"
	FillerRate      = "filler_rate"
)

// AnswerMetrics are the metrics of one answer.
type AnswerMetrics struct {
	QuestionID int                     `json:"questionId"`
	Metrics    map[string]MetricResult `json:"metrics"`
}

// CalculatedMetrics holds the per-answer metrics of an interview and their
// aggregate over all answers.
type CalculatedMetrics struct {
	Global    map[string]MetricResult `json:"global"`
	Questions []AnswerMetrics         `json:"questions"`
}

var singleFillers = map[string]bool{
	"um": true, "uh": true, "erm": true, "er": true, "ah": true,
	"like": true, "basically": true, "actually": true, "literally": true,
}

var phraseFillers = [][]string{
	{"you", "know"},
	{"i", "mean"},
	{"sort", "of"},
	{"kind", "of"},
}

// CalculateDeliveryMetrics computes the metrics of every answer, keeping
// answer order, plus the global aggregate.
func CalculateDeliveryMetrics(answers []interview.Answer) *CalculatedMetrics {
	result := &CalculatedMetrics{
		Questions: make([]AnswerMetrics, 0, len(answers)),
	}

	var totalWords, totalFillers, totalSeconds, totalSuggested int
	for _, a := range answers {
		words := tokenize(a.Transcript)
		fillers := countFillers(words)

		result.Questions = append(result.Questions, AnswerMetrics{
			QuestionID: a.QuestionID,
			Metrics: map[string]MetricResult{
				WordCount:       {Value: float64(len(words)), Calculated: true, SampleSize: 1},
				WordsPerMinute:  calculateWPM(len(words), a.DurationSec, 1),
				TimeUtilization: calculateUtilization(a.DurationSec, a.SuggestedTimeSec, 1),
				FillerWords:     {Value: float64(fillers), Calculated: true, SampleSize: 1},
				FillerRate:      calculateFillerRate(fillers, len(words), 1),
			},
		})

		totalWords += len(words)
		totalFillers += fillers
		totalSeconds += a.DurationSec
		totalSuggested += a.SuggestedTimeSec
	}

	n := len(answers)
	result.Global = map[string]MetricResult{
		WordCount:       {Value: float64(totalWords), Calculated: n > 0, SampleSize: n},
		WordsPerMinute:  calculateWPM(totalWords, totalSeconds, n),
		TimeUtilization: calculateUtilization(totalSeconds, totalSuggested, n),
		FillerWords:     {Value: float64(totalFillers), Calculated: n > 0, SampleSize: n},
		FillerRate:      calculateFillerRate(totalFillers, totalWords, n),
	}
	return result
}

// Keys returns the metric keys of m in a stable order.
func Keys(m map[string]MetricResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func calculateWPM(words, seconds, sampleSize int) MetricResult {
	if seconds <= 0 {
		return MetricResult{}
	}
	return MetricResult{
		Value:      interview.RoundTo(float64(words)/float64(seconds)*60, 1),
		Calculated: true,
		SampleSize: sampleSize,
	}
}

// calculateUtilization is the share of the suggested time that was used, in
// percent. Answers cut off by the time limit score 100.
func calculateUtilization(seconds, suggested, sampleSize int) MetricResult {
	if suggested <= 0 {
		return MetricResult{}
	}
	pct := float64(seconds) / float64(suggested) * 100
	if pct > 100 {
		pct = 100
	}
	return MetricResult{Value: interview.RoundTo(pct, 1), Calculated: true, SampleSize: sampleSize}
}

func calculateFillerRate(fillers, words, sampleSize int) MetricResult {
	if words == 0 {
		return MetricResult{}
	}
	return MetricResult{
		Value:      interview.RoundTo(float64(fillers)/float64(words)*100, 1),
		Calculated: true,
		SampleSize: sampleSize,
	}
}

func tokenize(transcript string) []string {
	return strings.FieldsFunc(strings.ToLower(transcript), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func countFillers(words []string) int {
	count := 0
	for i := 0; i < len(words); i++ {
		if matched := matchPhrase(words[i:]); matched > 0 {
			count++
			i += matched - 1
			continue
		}
		if singleFillers[words[i]] {
			count++
		}
	}
	return count
}

func matchPhrase(words []string) int {
	for _, phrase := range phraseFillers {
		if len(words) < len(phrase) {
			continue
		}
		match := true
		for j, w := range phrase {
			if words[j] != w {
				match = false
				break
			}
		}
		if match {
			return len(phrase)
		}
	}
	return 0
}
