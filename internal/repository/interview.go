package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"prepai-go/internal/models"
)

// ErrNotFound is returned when no interview has the requested ID.
var ErrNotFound = errors.New("interview not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// InterviewRepository stores finished interviews.
type InterviewRepository struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

// Save inserts rec together with its answers.
func (r *InterviewRepository) Save(ctx context.Context, rec *models.InterviewRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}

// List returns the most recent interviews first, optionally only those for
// company.
func (r *InterviewRepository) List(ctx context.Context, company string, limit int) ([]models.InterviewRecord, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	q := r.db.WithContext(ctx).
		Preload("Answers", orderedAnswers).
		Order("created_at DESC").
		Limit(limit)
	if company != "" {
		q = q.Where("LOWER(company) = LOWER(?)", company)
	}

	var records []models.InterviewRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the interview with id and its answers in asking order.
func (r *InterviewRepository) Get(ctx context.Context, id string) (*models.InterviewRecord, error) {
	var rec models.InterviewRecord
	err := r.db.WithContext(ctx).
		Preload("Answers", orderedAnswers).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the interview with id and its answers.
func (r *InterviewRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("interview_id = ?", id).Delete(&models.AnswerRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.InterviewRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Ping checks that the database answers.
func (r *InterviewRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func orderedAnswers(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
