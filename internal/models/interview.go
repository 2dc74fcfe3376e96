package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"prepai-go/internal/interview"
	"prepai-go/internal/metrics"
)

// InterviewRecord is a finished interview kept for history. Audio is never
// stored, only transcripts and scores.
type InterviewRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	Company         string `gorm:"index;size:120"`
	Title           string `gorm:"size:120"`
	Evaluated       bool
	OverallScore    float64
	OverallFeedback string
	EvaluationError string
	DeliveryMetrics datatypes.JSON
	Answers         []AnswerRecord `gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time      `gorm:"index"`
	UpdatedAt       time.Time
}

// AnswerRecord is one answer of an InterviewRecord, in asking order.
type AnswerRecord struct {
	ID               uint   `gorm:"primaryKey"`
	InterviewID      string `gorm:"index;size:36"`
	Position         int
	QuestionID       int
	QuestionText     string
	Transcript       string
	DurationSec      int
	SuggestedTimeSec int
	Score            *float64
	Strengths        datatypes.JSON
	Improvements     datatypes.JSON
	DeliveryMetrics  datatypes.JSON
}

// InterviewSubmission is what a client posts once an interview is complete.
type InterviewSubmission struct {
	Company         string                      `json:"company" binding:"max=200"`
	Title           string                      `json:"title" binding:"max=200"`
	Answers         []interview.Answer          `json:"answers" binding:"required,min=1"`
	Result          *interview.EvaluationResult `json:"result,omitempty"`
	EvaluationError string                      `json:"evaluationError,omitempty"`
}

// InterviewSummary is the list view of an InterviewRecord.
type InterviewSummary struct {
	ID           string    `json:"id"`
	Company      string    `json:"company"`
	Title        string    `json:"title"`
	Evaluated    bool      `json:"evaluated"`
	OverallScore float64   `json:"overallScore"`
	Questions    int       `json:"questions"`
	CreatedAt    time.Time `json:"createdAt"`
}

// InterviewDetail is the full view of an InterviewRecord.
type InterviewDetail struct {
	InterviewSummary
	OverallFeedback string                          `json:"overallFeedback,omitempty"`
	EvaluationError string                          `json:"evaluationError,omitempty"`
	Answers         []AnswerDetail                  `json:"answers"`
	Metrics         map[string]metrics.MetricResult `json:"metrics,omitempty"`
}

// AnswerDetail is one answer with its score and delivery metrics.
type AnswerDetail struct {
	interview.Answer
	Score        *float64                        `json:"score,omitempty"`
	Strengths    []string                        `json:"strengths"`
	Improvements []string                        `json:"improvements"`
	Metrics      map[string]metrics.MetricResult `json:"metrics,omitempty"`
}

// NewInterviewRecord builds the record for sub. The overall score is
// recomputed from the per-question scores.
func NewInterviewRecord(id string, sub InterviewSubmission) (*InterviewRecord, error) {
	delivery := metrics.CalculateDeliveryMetrics(sub.Answers)

	rec := &InterviewRecord{
		ID:              id,
		Company:         sub.Company,
		Title:           sub.Title,
		EvaluationError: sub.EvaluationError,
	}
	global, err := marshalJSON(delivery.Global)
	if err != nil {
		return nil, err
	}
	rec.DeliveryMetrics = global

	scores := make(map[int]interview.QuestionScore)
	if sub.Result != nil && sub.Result.PerQuestion != nil {
		rec.Evaluated = true
		rec.OverallScore = interview.MeanScore(sub.Result.PerQuestion)
		rec.OverallFeedback = sub.Result.OverallFeedback
		for _, s := range sub.Result.PerQuestion {
			scores[s.QuestionID] = s
		}
	}

	for i, a := range sub.Answers {
		ar := AnswerRecord{
			InterviewID:      id,
			Position:         i,
			QuestionID:       a.QuestionID,
			QuestionText:     a.QuestionText,
			Transcript:       a.Transcript,
			DurationSec:      a.DurationSec,
			SuggestedTimeSec: a.SuggestedTimeSec,
		}
		s, scored := scores[a.QuestionID]
		if scored {
			score := s.Score
			ar.Score = &score
		}
		if ar.Strengths, err = marshalJSON(nonNil(s.Strengths)); err != nil {
			return nil, err
		}
		if ar.Improvements, err = marshalJSON(nonNil(s.Improvements)); err != nil {
			return nil, err
		}
		if ar.DeliveryMetrics, err = marshalJSON(delivery.Questions[i].Metrics); err != nil {
			return nil, err
		}
		rec.Answers = append(rec.Answers, ar)
	}
	return rec, nil
}

// Summary returns the list view of r. Answers must be loaded for the
// question count.
func (r *InterviewRecord) Summary() InterviewSummary {
	return InterviewSummary{
		ID:           r.ID,
		Company:      r.Company,
		Title:        r.Title,
		Evaluated:    r.Evaluated,
		OverallScore: r.OverallScore,
		Questions:    len(r.Answers),
		CreatedAt:    r.CreatedAt,
	}
}

// Detail returns the full view of r.
func (r *InterviewRecord) Detail() (InterviewDetail, error) {
	d := InterviewDetail{
		InterviewSummary: r.Summary(),
		OverallFeedback:  r.OverallFeedback,
		EvaluationError:  r.EvaluationError,
		Answers:          make([]AnswerDetail, 0, len(r.Answers)),
	}
	if err := unmarshalJSON(r.DeliveryMetrics, &d.Metrics); err != nil {
		return d, err
	}
	for _, a := range r.Answers {
		ad := AnswerDetail{
			Answer: interview.Answer{
				QuestionID:       a.QuestionID,
				QuestionText:     a.QuestionText,
				Transcript:       a.Transcript,
				DurationSec:      a.DurationSec,
				SuggestedTimeSec: a.SuggestedTimeSec,
			},
			Score: a.Score,
		}
		if err := unmarshalJSON(a.Strengths, &ad.Strengths); err != nil {
			return d, err
		}
		if err := unmarshalJSON(a.Improvements, &ad.Improvements); err != nil {
			return d, err
		}
		if err := unmarshalJSON(a.DeliveryMetrics, &ad.Metrics); err != nil {
			return d, err
		}
		ad.Strengths = nonNil(ad.Strengths)
		ad.Improvements = nonNil(ad.Improvements)
		d.Answers = append(d.Answers, ad)
	}
	return d, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func unmarshalJSON(data datatypes.JSON, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
