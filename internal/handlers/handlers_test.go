package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prepai-go/internal/config"
	"prepai-go/internal/database"
	"prepai-go/internal/gateway"
	"prepai-go/internal/interview"
	"prepai-go/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubProvider struct {
	text       string
	completion string
	err        error
}

func (p *stubProvider) Transcribe(_ context.Context, audio gateway.Audio) (string, error) {
	_, _ = io.Copy(io.Discard, audio.Data)
	return p.text, p.err
}

func (p *stubProvider) Complete(context.Context, string, string) (string, error) {
	return p.completion, p.err
}

func gatewayEngine(provider gateway.Provider) *gin.Engine {
	svc := gateway.NewService(provider, time.Second, zap.NewNop())
	h := NewGatewayHandler(zap.NewNop(), svc, 1)
	r := gin.New()
	r.POST("/transcribe", h.Transcribe)
	r.POST("/evaluate", h.Evaluate)
	return r
}

func multipartBody(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("questionId", "2"))
	if field != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="answer.webm"`)
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postTranscribe(t *testing.T, r *gin.Engine, field, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTranscribe(t *testing.T) {
	r := gatewayEngine(&stubProvider{text: "I led the migration."})
	w := postTranscribe(t, r, "file", "audio/webm", []byte("webm-bytes"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "I led the migration.", decode(t, w)["text"])
}

func TestTranscribeEmptyText(t *testing.T) {
	r := gatewayEngine(&stubProvider{text: ""})
	w := postTranscribe(t, r, "file", "audio/webm", []byte("silence"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decode(t, w)["text"])
}

func TestTranscribeMissingFile(t *testing.T) {
	r := gatewayEngine(&stubProvider{})
	w := postTranscribe(t, r, "", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["error"])
}

func TestTranscribeMissingCredential(t *testing.T) {
	r := gatewayEngine(nil)
	w := postTranscribe(t, r, "file", "audio/webm", []byte("x"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server missing OPENAI_API_KEY", decode(t, w)["error"])
}

func TestTranscribeUpstreamFailure(t *testing.T) {
	r := gatewayEngine(&stubProvider{err: &gateway.UpstreamError{Op: "transcription", StatusCode: 500, Err: errors.New("overloaded")}})
	w := postTranscribe(t, r, "file", "audio/webm", []byte("x"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Transcription failed", body["error"])
	assert.Contains(t, body["detail"], "overloaded")
}

func TestTranscribeRejectsNonAudio(t *testing.T) {
	r := gatewayEngine(&stubProvider{})
	w := postTranscribe(t, r, "file", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestTranscribeTooLarge(t *testing.T) {
	r := gatewayEngine(&stubProvider{})
	w := postTranscribe(t, r, "file", "audio/webm", bytes.Repeat([]byte("a"), 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const evaluateBody = `{"company":"Acme","title":"SRE","questions":[
	{"questionId":1,"questionText":"Q1","transcript":"answer one","durationSec":30,"suggestedTimeSec":45},
	{"questionId":2,"questionText":"Q2","transcript":"answer two"}]}`

func TestEvaluate(t *testing.T) {
	r := gatewayEngine(&stubProvider{completion: `{"perQuestion":[{"questionId":1,"score":9,"strengths":["a"],"improvements":["b"]},{"questionId":2,"score":7}],"overallScore":2,"overallFeedback":"Good"}`})
	w := postJSON(r, "/evaluate", evaluateBody)
	require.Equal(t, http.StatusOK, w.Code)

	var result interview.EvaluationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.PerQuestion, 2)
	assert.Equal(t, 9.0, result.PerQuestion[0].Score)
	assert.Equal(t, "Good", result.OverallFeedback)
}

func TestEvaluateRequiresQuestions(t *testing.T) {
	r := gatewayEngine(&stubProvider{})
	for _, body := range []string{`{}`, `{"questions":[]}`, `not json`} {
		w := postJSON(r, "/evaluate", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestEvaluateMissingCredential(t *testing.T) {
	w := postJSON(gatewayEngine(nil), "/evaluate", evaluateBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server missing OPENAI_API_KEY", decode(t, w)["error"])
}

func TestEvaluateUnparseableModelOutput(t *testing.T) {
	w := postJSON(gatewayEngine(&stubProvider{completion: "Sorry, I can't."}), "/evaluate", evaluateBody)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Evaluation failed", decode(t, w)["error"])
}

func historyEngine(t *testing.T) (*gin.Engine, *repository.InterviewRepository) {
	t.Helper()
	db, err := database.Open(t.TempDir(), config.DatabaseConfig{Driver: "sqlite", Path: "history.db"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := repository.NewInterviewRepository(db)
	h := NewHistoryHandler(zap.NewNop(), repo)

	r := gin.New()
	r.GET("/healthz", Health(zap.NewNop(), repo, func() bool { return false }))
	r.POST("/interviews", h.Create)
	r.GET("/interviews", h.List)
	r.GET("/interviews/:id", h.Get)
	r.DELETE("/interviews/:id", h.Delete)
	r.GET("/interviews/:id/chart", h.Chart)
	return r, repo
}

const submission = `{"company":"  Acme  ","title":"SRE","answers":[
	{"questionId":1,"questionText":"Q1","transcript":"um I fixed it","durationSec":20,"suggestedTimeSec":40},
	{"questionId":2,"questionText":"Q2","transcript":"","durationSec":0,"suggestedTimeSec":45}],
	"result":{"overallScore":1,"overallFeedback":"Fine","perQuestion":[{"questionId":1,"score":9},{"questionId":2,"score":6}]}}`

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHistoryLifecycle(t *testing.T) {
	r, _ := historyEngine(t)

	w := postJSON(r, "/interviews", submission)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 7.5, created["overallScore"])

	w = get(r, "/interviews")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["interviews"].([]any)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, "Acme", first["company"])
	assert.Equal(t, 2.0, first["questions"])

	w = get(r, "/interviews/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	answers := detail["answers"].([]any)
	require.Len(t, answers, 2)
	a1 := answers[0].(map[string]any)
	assert.Equal(t, "um I fixed it", a1["transcript"])
	assert.Equal(t, 9.0, a1["score"])
	assert.Equal(t, 1.0, a1["metrics"].(map[string]any)["filler_words"].(map[string]any)["value"])

	w = get(r, "/interviews/"+id+"/chart?format=json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Overall 7.5 / 10")

	w = get(r, "/interviews/"+id+"/chart")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "echarts")

	req := httptest.NewRequest(http.MethodDelete, "/interviews/"+id, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusNotFound, get(r, "/interviews/"+id).Code)
}

func TestHistoryRejectsEmptySubmission(t *testing.T) {
	r, _ := historyEngine(t)
	w := postJSON(r, "/interviews", `{"company":"Acme","answers":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryChartWithoutScores(t *testing.T) {
	r, _ := historyEngine(t)
	w := postJSON(r, "/interviews", `{"answers":[{"questionId":1,"questionText":"Q1"}],"evaluationError":"evaluation failed: status 502"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = get(r, "/interviews/"+id+"/chart")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "evaluation failed: status 502", decode(t, w)["detail"])
}

func TestHealth(t *testing.T) {
	r, _ := historyEngine(t)
	w := get(r, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["provider"])
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthDegraded(t *testing.T) {
	r := gin.New()
	r.GET("/healthz", Health(zap.NewNop(), downDB{}, func() bool { return true }))
	w := get(r, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}
