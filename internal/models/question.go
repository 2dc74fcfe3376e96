package models

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"prepai-go/internal/interview"
)

// Track is the question set for one company and role, in asking order.
type Track struct {
	Company   string               `yaml:"company" validate:"required"`
	Title     string               `yaml:"title" validate:"required"`
	Questions []interview.Question `yaml:"questions" validate:"required,min=1"`
}

// QuestionBank holds every track loaded from questions.yaml.
type QuestionBank struct {
	Tracks []Track `yaml:"tracks" validate:"required,min=1,dive"`
}

// LoadQuestionBank reads and validates the question bank at path.
func LoadQuestionBank(path string) (*QuestionBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}

	var bank QuestionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question bank YAML: %w", err)
	}
	if err := bank.validate(); err != nil {
		return nil, err
	}
	return &bank, nil
}

func (b *QuestionBank) validate() error {
	if err := validator.New().Struct(b); err != nil {
		return fmt.Errorf("invalid question bank: %w", err)
	}
	for _, t := range b.Tracks {
		seen := make(map[int]bool, len(t.Questions))
		for _, q := range t.Questions {
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("invalid question bank: %s/%s: question %d has no text", t.Company, t.Title, q.ID)
			}
			if seen[q.ID] {
				return fmt.Errorf("invalid question bank: %s/%s: duplicate question id %d", t.Company, t.Title, q.ID)
			}
			seen[q.ID] = true
		}
	}
	return nil
}

// Find returns the track matching company and title, ignoring case. Empty
// arguments match anything, so Find("", "") is the first track.
func (b *QuestionBank) Find(company, title string) (*Track, error) {
	for i := range b.Tracks {
		t := &b.Tracks[i]
		if company != "" && !strings.EqualFold(t.Company, company) {
			continue
		}
		if title != "" && !strings.EqualFold(t.Title, title) {
			continue
		}
		return t, nil
	}
	return nil, fmt.Errorf("no questions for company %q and title %q", company, title)
}

// ShuffleQuestions returns a copy of questions in random order.
func ShuffleQuestions(questions []interview.Question) []interview.Question {
	out := make([]interview.Question, len(questions))
	copy(out, questions)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
