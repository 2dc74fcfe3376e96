package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"prepai-go/internal/interview"
)

const (
	MinScore = 0
	MaxScore = 10
	// emptyAnswerCap is the best score an answer with no transcript can get.
	emptyAnswerCap = 1
)

// ErrUnparseableEvaluation marks provider output that is not the expected JSON.
var ErrUnparseableEvaluation = errors.New("provider returned unparseable evaluation")

const evaluationSystemPrompt = `You are an experienced technical interviewer scoring a candidate's spoken answers.

INSTRUCTIONS:
1. Score every answer from 0 to 10 (decimals allowed).
2. An empty or missing transcript means the candidate did not answer: score it 0 or 1.
3. Give 1-3 concrete strengths and 1-3 concrete improvements per answer.
4. Judge relevance to the question, structure, specificity and use of the time available.
5. Return ONLY valid JSON, no markdown and no comments.

RESPONSE FORMAT:
{"perQuestion":[{"questionId":1,"score":7.5,"strengths":["..."],"improvements":["..."]}],"overallScore":7.5,"overallFeedback":"..."}`

// BuildEvaluationPrompt returns the system and user messages for scoring req.
func BuildEvaluationPrompt(req interview.EvaluationRequest) (string, string) {
	var b strings.Builder

	role := strings.TrimSpace(req.Title)
	company := strings.TrimSpace(req.Company)
	switch {
	case role != "" && company != "":
		fmt.Fprintf(&b, "Interview for the %s role at %s.\n\n", role, company)
	case role != "":
		fmt.Fprintf(&b, "Interview for the %s role.\n\n", role)
	case company != "":
		fmt.Fprintf(&b, "Interview at %s.\n\n", company)
	}

	b.WriteString("ANSWERS:\n")
	for _, a := range req.Questions {
		fmt.Fprintf(&b, "\nquestionId: %d\n", a.QuestionID)
		fmt.Fprintf(&b, "question: %s\n", a.QuestionText)
		if a.SuggestedTimeSec > 0 {
			fmt.Fprintf(&b, "time used: %ds of %ds\n", a.DurationSec, a.SuggestedTimeSec)
		}
		transcript := strings.TrimSpace(a.Transcript)
		if transcript == "" {
			transcript = "(no answer)"
		}
		fmt.Fprintf(&b, "transcript: %s\n", transcript)
	}
	b.WriteString("\nRESPONSE (JSON only):")

	return evaluationSystemPrompt, b.String()
}

// ParseEvaluation decodes provider output into an EvaluationResult. Scores
// are clamped to [0, 10] and answers without a transcript are capped low.
func ParseEvaluation(content string, answers []interview.Answer) (*interview.EvaluationResult, error) {
	var result interview.EvaluationResult
	if err := json.Unmarshal([]byte(cleanJSONResponse(content)), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableEvaluation, err)
	}
	if result.PerQuestion == nil {
		return nil, fmt.Errorf("%w: no perQuestion list", ErrUnparseableEvaluation)
	}

	empty := make(map[int]bool, len(answers))
	for _, a := range answers {
		empty[a.QuestionID] = strings.TrimSpace(a.Transcript) == ""
	}

	for i := range result.PerQuestion {
		q := &result.PerQuestion[i]
		q.Score = clamp(q.Score, MinScore, MaxScore)
		if empty[q.QuestionID] && q.Score > emptyAnswerCap {
			q.Score = emptyAnswerCap
		}
		if q.Strengths == nil {
			q.Strengths = []string{}
		}
		if q.Improvements == nil {
			q.Improvements = []string{}
		}
	}
	result.OverallScore = clamp(result.OverallScore, MinScore, MaxScore)
	return &result, nil
}

// cleanJSONResponse strips markdown fences models like to wrap JSON in.
func cleanJSONResponse(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "{"); start > 0 {
		response = response[start:]
	}
	if end := strings.LastIndex(response, "}"); end >= 0 && end < len(response)-1 {
		response = response[:end+1]
	}
	return response
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
