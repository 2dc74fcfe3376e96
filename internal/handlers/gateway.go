package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepai-go/internal/gateway"
	"prepai-go/internal/interview"
	"prepai-go/internal/utils"
)

// GatewayHandler serves the transcription and evaluation proxies.
type GatewayHandler struct {
	log            *zap.Logger
	svc            *gateway.Service
	maxUploadBytes int64
}

func NewGatewayHandler(log *zap.Logger, svc *gateway.Service, maxUploadMB int64) *GatewayHandler {
	return &GatewayHandler{log: log, svc: svc, maxUploadBytes: maxUploadMB << 20}
}

type evaluateRequest struct {
	Company   string             `json:"company"`
	Title     string             `json:"title"`
	Questions []interview.Answer `json:"questions" binding:"required,min=1"`
}

// Transcribe accepts a multipart upload with the recorded answer in "file"
// and answers {"text": ...}.
func (h *GatewayHandler) Transcribe(c *gin.Context) {
	if !h.svc.Ready() {
		missingCredential(c)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Audio file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing audio file", "detail": "multipart field 'file' is required"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !utils.IsAudioContentType(contentType) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "Unsupported audio type", "detail": contentType})
		return
	}

	questionID, _ := strconv.Atoi(c.PostForm("questionId"))

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error("Failed to open uploaded audio", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable audio file"})
		return
	}
	defer file.Close()

	text, err := h.svc.Transcribe(c.Request.Context(), gateway.Audio{
		Name:        fileHeader.Filename,
		ContentType: contentType,
		Data:        file,
	})
	if err != nil {
		h.upstreamFailure(c, "Transcription failed", err, zap.Int("questionId", questionID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}

// Evaluate scores a finished interview.
func (h *GatewayHandler) Evaluate(c *gin.Context) {
	if !h.svc.Ready() {
		missingCredential(c)
		return
	}

	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "questions must be a non-empty list", "detail": err.Error()})
		return
	}

	result, err := h.svc.Evaluate(c.Request.Context(), interview.EvaluationRequest{
		Company:   utils.SanitizeLabel(req.Company),
		Title:     utils.SanitizeLabel(req.Title),
		Questions: req.Questions,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrNoQuestions) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.upstreamFailure(c, "Evaluation failed", err, zap.Int("answers", len(req.Questions)))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GatewayHandler) upstreamFailure(c *gin.Context, msg string, err error, fields ...zap.Field) {
	if errors.Is(err, gateway.ErrMissingCredential) {
		missingCredential(c)
		return
	}
	h.log.Error(msg, append(fields, zap.Error(err))...)
	c.JSON(http.StatusBadGateway, gin.H{"error": msg, "detail": err.Error()})
}

func missingCredential(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server missing " + gateway.CredentialName})
}
