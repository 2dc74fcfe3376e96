package interview

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoQuestions    = errors.New("interview has no questions")
	ErrAlreadyStarted = errors.New("interview already started")
)

// State is the position of an interview in its lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateBigCountdown
	StatePrompting
	StateSmallCountdown
	StateRecording
	StateTranscribing
	StateEvaluating
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateBigCountdown:
		return "big-countdown"
	case StatePrompting:
		return "prompting"
	case StateSmallCountdown:
		return "small-countdown"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateEvaluating:
		return "evaluating"
	case StateComplete:
		return "complete"
	}
	return "not-started"
}

// Transcriber turns one recorded answer into text. An empty string is a
// valid result.
type Transcriber interface {
	Transcribe(ctx context.Context, questionID int, audio []byte) (string, error)
}

// Evaluator scores all answers of an interview in one call.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error)
}

// Options tunes an Orchestrator. Zero values select the defaults.
type Options struct {
	Company string
	Title   string

	StartCountdown  int           // default 3
	AnswerCountdown int           // default 3
	Tick            time.Duration // default 1s
	SpeechRate      float64       // default 1.0

	Logger *zap.Logger
	// OnChange is called with a fresh Snapshot after every observable
	// change. It may be called from more than one goroutine.
	OnChange func(Snapshot)
}

// Snapshot is a consistent view of an interview for rendering.
type Snapshot struct {
	State      State
	Index      int
	Total      int
	Question   Question
	Countdown  int
	Remaining  int
	Progress   int
	Muted      bool
	SpeechRate float64

	// MediaBlocked is set while the current question waits for the
	// microphone; only Retry or Skip move on.
	MediaBlocked bool
	LastError    error

	Answers       []Answer
	Result        *EvaluationResult
	EvaluationErr error
}

// CanPrevious reports whether Previous would be accepted.
func (s Snapshot) CanPrevious() bool {
	return !s.MediaBlocked && (s.State == StatePrompting || s.State == StateSmallCountdown)
}

// CanSkip reports whether Skip would be accepted.
func (s Snapshot) CanSkip() bool {
	return s.MediaBlocked || s.State == StatePrompting || s.State == StateSmallCountdown || s.State == StateRecording
}

type stepIntent int

const (
	intentNone stepIntent = iota
	intentSkip
	intentPrevious
	intentRetry
)

// Orchestrator drives an interview question by question. Run owns the flow;
// the command methods may be called from any goroutine.
type Orchestrator struct {
	questions   []Question
	prompter    SpeechPrompter
	recorder    AudioRecorder
	transcriber Transcriber
	evaluator   Evaluator
	opts        Options
	log         *zap.Logger

	mu           sync.Mutex
	running      bool
	state        State
	index        int
	countdown    int
	rate         float64
	answers      []Answer
	result       *EvaluationResult
	evalErr      error
	lastErr      error
	mediaBlocked bool
	stepCancel   context.CancelFunc
	intent       stepIntent
}

// NewOrchestrator returns an interview over questions, which must stay in
// the order they are to be asked. A nil prompter means questions are only
// shown, never spoken.
func NewOrchestrator(questions []Question, prompter SpeechPrompter, recorder AudioRecorder, transcriber Transcriber, evaluator Evaluator, opts Options) *Orchestrator {
	if opts.StartCountdown <= 0 {
		opts.StartCountdown = 3
	}
	if opts.AnswerCountdown <= 0 {
		opts.AnswerCountdown = 3
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if prompter == nil {
		prompter = NewVoice(nil)
	}

	qs := make([]Question, len(questions))
	copy(qs, questions)

	return &Orchestrator{
		questions:   qs,
		prompter:    prompter,
		recorder:    recorder,
		transcriber: transcriber,
		evaluator:   evaluator,
		opts:        opts,
		log:         opts.Logger.Named("interview"),
		rate:        ClampRate(opts.SpeechRate),
		answers:     make([]Answer, 0, len(qs)),
	}
}

// Run performs the whole interview and returns when it is Complete. It
// returns early only when ctx is done, in which case any countdown,
// recording or utterance in flight is abandoned. Evaluation failures do not
// make Run fail; they are reported through Snapshot.EvaluationErr.
func (o *Orchestrator) Run(ctx context.Context) error {
	if len(o.questions) == 0 {
		return ErrNoQuestions
	}
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.running = true
	o.mu.Unlock()
	defer o.prompter.Cancel()

	o.log.Info("Interview started", zap.Int("questions", len(o.questions)), zap.String("company", o.opts.Company))

	o.setState(StateBigCountdown)
	if err := NewCountdown(o.opts.StartCountdown, o.opts.Tick).Run(ctx, o.tick); err != nil {
		return err
	}

	for i, q := range o.questions {
		o.mu.Lock()
		o.index = i
		o.mu.Unlock()

		answer, err := o.runQuestion(ctx, q)
		if err != nil {
			return err
		}

		o.mu.Lock()
		o.answers = append(o.answers, answer)
		o.mu.Unlock()
		o.notify()
	}

	return o.evaluate(ctx)
}

// runQuestion prompts q until it yields an answer. Previous and Retry
// restart the question; Skip abandons it with an empty transcript.
func (o *Orchestrator) runQuestion(ctx context.Context, q Question) (Answer, error) {
	for {
		step, cancel := context.WithCancel(ctx)
		o.mu.Lock()
		o.stepCancel = cancel
		o.intent = intentNone
		o.mu.Unlock()

		rec, captureErr := o.capture(step, q)

		o.mu.Lock()
		intent := o.intent
		o.stepCancel = nil
		o.mu.Unlock()
		cancel()

		if err := ctx.Err(); err != nil {
			return Answer{}, err
		}

		switch intent {
		case intentPrevious, intentRetry:
			o.log.Debug("Question restarted", zap.Int("questionId", q.ID))
			continue
		case intentSkip:
			o.log.Info("Question skipped", zap.Int("questionId", q.ID))
			return o.answerFor(q, "", rec.DurationSec), nil
		}

		if captureErr != nil {
			// Only reachable if the step ended without a command.
			return o.answerFor(q, "", rec.DurationSec), nil
		}
		return o.transcribe(ctx, q, rec), nil
	}
}

// capture runs prompt, answer countdown and recording for q under step.
// A cancelled step yields step.Err() together with whatever was recorded.
func (o *Orchestrator) capture(step context.Context, q Question) (RecordingResult, error) {
	o.mu.Lock()
	o.state = StatePrompting
	o.countdown = 0
	rate := o.rate
	o.mu.Unlock()
	o.notify()

	o.prompter.Speak(q.Text, rate)

	o.setState(StateSmallCountdown)
	if err := NewCountdown(o.opts.AnswerCountdown, o.opts.Tick).Run(step, o.tick); err != nil {
		return RecordingResult{}, err
	}
	if err := step.Err(); err != nil {
		return RecordingResult{}, err
	}

	if o.recorder == nil {
		return RecordingResult{}, o.blockMedia(step, &MediaAccessError{Err: errors.New("no recorder configured")})
	}
	results, err := o.recorder.Start(step, q.TimeLimit())
	if err != nil {
		if stepErr := step.Err(); stepErr != nil {
			return RecordingResult{}, stepErr
		}
		var mediaErr *MediaAccessError
		if !errors.As(err, &mediaErr) {
			mediaErr = &MediaAccessError{Err: err}
		}
		return RecordingResult{}, o.blockMedia(step, mediaErr)
	}

	o.setState(StateRecording)

	ticker := time.NewTicker(o.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case res := <-results:
			return res, o.endCapture(step)
		case <-ticker.C:
			o.notify()
		}
	}
}

// endCapture moves a finished recording on to Transcribing unless a command
// already ended the step. From here on Skip and Previous are rejected.
func (o *Orchestrator) endCapture(step context.Context) error {
	o.mu.Lock()
	handoff := o.intent == intentNone && step.Err() == nil
	if handoff {
		o.state = StateTranscribing
		o.stepCancel = nil
	}
	o.mu.Unlock()
	if handoff {
		o.notify()
	}
	return step.Err()
}

// blockMedia parks the current question until Skip or Retry ends the step.
func (o *Orchestrator) blockMedia(step context.Context, err *MediaAccessError) error {
	o.log.Warn("Microphone unavailable", zap.Error(err))
	o.mu.Lock()
	o.mediaBlocked = true
	o.lastErr = err
	o.mu.Unlock()
	o.notify()

	<-step.Done()

	o.mu.Lock()
	o.mediaBlocked = false
	if o.intent == intentRetry {
		o.lastErr = nil
	}
	o.mu.Unlock()
	return step.Err()
}

func (o *Orchestrator) transcribe(ctx context.Context, q Question, rec RecordingResult) Answer {
	text, err := o.transcriber.Transcribe(ctx, q.ID, rec.Blob)
	o.mu.Lock()
	if err != nil {
		o.lastErr = err
		text = ""
	} else {
		o.lastErr = nil
	}
	o.mu.Unlock()
	if err != nil {
		o.log.Warn("Transcription failed, continuing with empty transcript", zap.Int("questionId", q.ID), zap.Error(err))
	}
	return o.answerFor(q, text, rec.DurationSec)
}

func (o *Orchestrator) answerFor(q Question, transcript string, durationSec int) Answer {
	return Answer{
		QuestionID:       q.ID,
		QuestionText:     q.Text,
		Transcript:       transcript,
		DurationSec:      durationSec,
		SuggestedTimeSec: q.TimeLimit(),
	}
}

func (o *Orchestrator) evaluate(ctx context.Context) error {
	o.mu.Lock()
	o.state = StateEvaluating
	req := EvaluationRequest{
		Company:   o.opts.Company,
		Title:     o.opts.Title,
		Questions: append([]Answer(nil), o.answers...),
	}
	o.mu.Unlock()
	o.notify()

	result, err := o.evaluator.Evaluate(ctx, req)
	if err == nil && (result == nil || result.PerQuestion == nil) {
		err = &EvaluationError{Err: ErrMalformedEvaluation}
	}

	o.mu.Lock()
	if err != nil {
		var evalErr *EvaluationError
		if !errors.As(err, &evalErr) {
			err = &EvaluationError{Err: err}
		}
		o.evalErr = err
		o.result = nil
	} else {
		NormalizeOverallScore(result)
		o.result = result
	}
	o.state = StateComplete
	o.mu.Unlock()
	o.notify()

	if err != nil {
		o.log.Error("Failed to evaluate interview", zap.Error(err))
		return ctx.Err()
	}
	o.log.Info("Interview complete", zap.Float64("overallScore", result.OverallScore))
	return nil
}

// Skip abandons the current question, recording an empty answer for it. It
// is ignored outside prompting, counting down and recording.
func (o *Orchestrator) Skip() bool {
	o.mu.Lock()
	ok := o.mediaBlocked || o.state == StatePrompting || o.state == StateSmallCountdown || o.state == StateRecording
	if ok {
		ok = o.endStepLocked(intentSkip)
	}
	o.mu.Unlock()
	if ok {
		o.prompter.Cancel()
	}
	return ok
}

// Previous replays the prompt of the question on screen. Submitted answers
// are never reopened.
func (o *Orchestrator) Previous() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mediaBlocked || (o.state != StatePrompting && o.state != StateSmallCountdown) {
		return false
	}
	return o.endStepLocked(intentPrevious)
}

// Retry asks for the microphone again after a MediaAccessError.
func (o *Orchestrator) Retry() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.mediaBlocked {
		return false
	}
	return o.endStepLocked(intentRetry)
}

// StopAnswer ends the recording early and submits it.
func (o *Orchestrator) StopAnswer() bool {
	o.mu.Lock()
	recording := o.state == StateRecording
	o.mu.Unlock()
	if !recording {
		return false
	}
	o.recorder.Stop()
	return true
}

func (o *Orchestrator) endStepLocked(intent stepIntent) bool {
	if o.stepCancel == nil || o.intent != intentNone {
		return false
	}
	o.intent = intent
	o.stepCancel()
	return true
}

func (o *Orchestrator) Mute() {
	o.prompter.Mute()
	o.notify()
}

func (o *Orchestrator) Unmute() {
	o.prompter.Unmute()
	o.notify()
}

// SetRate changes the speech rate for the next prompt.
func (o *Orchestrator) SetRate(rate float64) {
	o.mu.Lock()
	o.rate = ClampRate(rate)
	o.mu.Unlock()
	o.notify()
}

// Snapshot returns the current view of the interview.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	s := Snapshot{
		State:         o.state,
		Index:         o.index,
		Total:         len(o.questions),
		Countdown:     o.countdown,
		SpeechRate:    o.rate,
		MediaBlocked:  o.mediaBlocked,
		LastError:     o.lastErr,
		Answers:       append([]Answer(nil), o.answers...),
		Result:        o.result,
		EvaluationErr: o.evalErr,
	}
	o.mu.Unlock()

	if s.Index < len(o.questions) {
		s.Question = o.questions[s.Index]
	}
	started := s.State != StateNotStarted && s.State != StateBigCountdown
	s.Progress = Progress(s.Index, s.Total, started)
	if s.State == StateRecording {
		s.Remaining = o.recorder.Remaining()
	}
	s.Muted = o.prompter.Muted()
	return s
}

// Progress returns round((index + started) / total * 100).
func Progress(index, total int, started bool) int {
	if total <= 0 {
		return 0
	}
	n := index
	if started {
		n++
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) tick(n int) {
	o.mu.Lock()
	o.countdown = n
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) notify() {
	if o.opts.OnChange != nil {
		o.opts.OnChange(o.Snapshot())
	}
}
