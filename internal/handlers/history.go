package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"prepai-go/internal/models"
	"prepai-go/internal/repository"
	"prepai-go/internal/utils"
)

// HistoryHandler stores and shows finished interviews.
type HistoryHandler struct {
	log  *zap.Logger
	repo *repository.InterviewRepository
}

func NewHistoryHandler(log *zap.Logger, repo *repository.InterviewRepository) *HistoryHandler {
	return &HistoryHandler{log: log, repo: repo}
}

// Create stores a finished interview and answers with its ID.
func (h *HistoryHandler) Create(c *gin.Context) {
	var sub models.InterviewSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interview", "detail": err.Error()})
		return
	}
	sub.Company = utils.SanitizeLabel(sub.Company)
	sub.Title = utils.SanitizeLabel(sub.Title)

	rec, err := models.NewInterviewRecord(uuid.NewString(), sub)
	if err != nil {
		h.log.Error("Failed to build interview record", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interview", "detail": err.Error()})
		return
	}
	if err := h.repo.Save(c.Request.Context(), rec); err != nil {
		h.log.Error("Failed to save interview", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save interview"})
		return
	}

	h.log.Info("Interview saved", zap.String("interviewID", rec.ID), zap.Int("answers", len(rec.Answers)))
	c.JSON(http.StatusCreated, gin.H{"id": rec.ID, "overallScore": rec.OverallScore})
}

// List answers with the most recent interviews, newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.repo.List(c.Request.Context(), c.Query("company"), limit)
	if err != nil {
		h.log.Error("Failed to list interviews", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load interviews"})
		return
	}

	summaries := make([]models.InterviewSummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, records[i].Summary())
	}
	c.JSON(http.StatusOK, gin.H{"interviews": summaries})
}

// Get answers with one interview, its answers, scores and delivery metrics.
func (h *HistoryHandler) Get(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}
	detail, err := rec.Detail()
	if err != nil {
		h.log.Error("Failed to decode interview", zap.Error(err), zap.String("interviewID", rec.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load interview"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	err := h.repo.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Interview not found"})
	case err != nil:
		h.log.Error("Failed to delete interview", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete interview"})
	default:
		c.Status(http.StatusNoContent)
	}
}

// Chart renders the per-question scores of an interview as a bar chart.
// With ?format=json only the chart options are returned.
func (h *HistoryHandler) Chart(c *gin.Context) {
	rec, ok := h.load(c)
	if !ok {
		return
	}
	if !rec.Evaluated {
		c.JSON(http.StatusConflict, gin.H{"error": "Interview has no scores", "detail": rec.EvaluationError})
		return
	}

	chart := generateScoreChart(rec)
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, chart.JSON())
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := chart.Render(c.Writer); err != nil {
		h.log.Error("Failed to render score chart", zap.Error(err), zap.String("interviewID", rec.ID))
	}
}

func (h *HistoryHandler) load(c *gin.Context) (*models.InterviewRecord, bool) {
	rec, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Interview not found"})
		return nil, false
	}
	if err != nil {
		h.log.Error("Failed to load interview", zap.Error(err), zap.String("interviewID", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load interview"})
		return nil, false
	}
	return rec, true
}

func generateScoreChart(rec *models.InterviewRecord) *charts.Bar {
	bar := charts.NewBar()
	subtitle := rec.Title
	if rec.Company != "" {
		subtitle = fmt.Sprintf("%s, %s", rec.Title, rec.Company)
	}
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Overall %.1f / 10", rec.OverallScore),
			Subtitle: subtitle,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			Min:  0,
			Max:  10,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	labels := make([]string, 0, len(rec.Answers))
	items := make([]opts.BarData, 0, len(rec.Answers))
	for i, a := range rec.Answers {
		labels = append(labels, fmt.Sprintf("Q%d", i+1))
		var score float64
		if a.Score != nil {
			score = *a.Score
		}
		items = append(items, opts.BarData{Name: a.QuestionText, Value: score})
	}

	bar.SetXAxis(labels).AddSeries("Score", items)
	return bar
}
