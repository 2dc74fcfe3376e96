package interview

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRecorderBusy is returned by Start while a capture is in progress.
var ErrRecorderBusy = errors.New("recorder is already recording")

// RecorderState is the lifecycle position of a Recorder.
type RecorderState int

const (
	RecorderIdle RecorderState = iota
	RecorderRecording
	RecorderStopped
	RecorderAutoStopped
)

func (s RecorderState) String() string {
	switch s {
	case RecorderRecording:
		return "recording"
	case RecorderStopped:
		return "stopped"
	case RecorderAutoStopped:
		return "auto-stopped"
	}
	return "idle"
}

// MediaStream is an acquired microphone. Close releases the device and
// must make a pending Read return.
type MediaStream interface {
	io.Reader
	Close() error
}

// MediaSource grants access to the microphone.
type MediaSource interface {
	Open(ctx context.Context) (MediaStream, error)
}

// AudioRecorder captures one answer at a time. Start returns a channel that
// receives exactly one RecordingResult for the cycle, when Stop is called,
// when maxDurationSec elapses, or when ctx is done, whichever comes first.
type AudioRecorder interface {
	Start(ctx context.Context, maxDurationSec int) (<-chan RecordingResult, error)
	Stop()
	Elapsed() int
	Remaining() int
}

// Recorder is the AudioRecorder backed by a MediaSource.
type Recorder struct {
	source MediaSource
	now    func() time.Time
	// unit is the length of one "second" of the recording limit.
	unit time.Duration

	mu    sync.Mutex
	state RecorderState
	cycle *captureCycle
}

type captureCycle struct {
	stream   MediaStream
	started  time.Time
	maxSec   int
	buf      bytes.Buffer
	copyDone chan struct{}
	out      chan RecordingResult
	timer    *time.Timer
	stopCtx  func() bool
	once     sync.Once
	duration int
}

// NewRecorder returns an idle recorder reading from source.
func NewRecorder(source MediaSource) *Recorder {
	return &Recorder{source: source, now: time.Now, unit: time.Second}
}

// Start acquires the microphone and begins capturing. If the microphone
// cannot be acquired it returns a *MediaAccessError and stays out of the
// recording state.
func (r *Recorder) Start(ctx context.Context, maxDurationSec int) (<-chan RecordingResult, error) {
	if maxDurationSec <= 0 {
		maxDurationSec = DefaultSuggestedTimeSec
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RecorderRecording {
		return nil, ErrRecorderBusy
	}
	if r.source == nil {
		return nil, &MediaAccessError{Err: errors.New("no audio input configured")}
	}

	stream, err := r.source.Open(ctx)
	if err != nil {
		return nil, &MediaAccessError{Err: err}
	}

	c := &captureCycle{
		stream:   stream,
		started:  r.now(),
		maxSec:   maxDurationSec,
		copyDone: make(chan struct{}),
		out:      make(chan RecordingResult, 1),
	}
	go func() {
		defer close(c.copyDone)
		_, _ = io.Copy(&c.buf, stream)
	}()
	c.timer = time.AfterFunc(time.Duration(maxDurationSec)*r.unit, func() {
		r.finish(c, RecorderAutoStopped)
	})
	c.stopCtx = context.AfterFunc(ctx, func() {
		r.finish(c, RecorderStopped)
	})

	r.cycle = c
	r.state = RecorderRecording
	return c.out, nil
}

// Stop ends the current capture. It is a no-op when nothing is recording.
func (r *Recorder) Stop() {
	r.mu.Lock()
	c := r.cycle
	r.mu.Unlock()
	if c != nil {
		r.finish(c, RecorderStopped)
	}
}

// finish releases the stream and emits the single result of cycle c. Every
// exit path goes through here; only the first call has any effect.
func (r *Recorder) finish(c *captureCycle, terminal RecorderState) {
	c.once.Do(func() {
		// Start may still hold the lock while the context hook fires.
		r.mu.Lock()
		timer, stopCtx := c.timer, c.stopCtx
		r.mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		if stopCtx != nil {
			stopCtx()
		}

		elapsed := int(r.now().Sub(c.started) / r.unit)
		if terminal == RecorderAutoStopped || elapsed > c.maxSec {
			elapsed = c.maxSec
		}

		_ = c.stream.Close()
		<-c.copyDone

		r.mu.Lock()
		c.duration = elapsed
		if r.cycle == c {
			r.state = terminal
		}
		r.mu.Unlock()

		c.out <- RecordingResult{
			Blob:        c.buf.Bytes(),
			URL:         "blob:recording/" + uuid.NewString(),
			DurationSec: elapsed,
		}
		close(c.out)
	})
}

func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns whole seconds captured in the current or last cycle.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cycle == nil {
		return 0
	}
	if r.state != RecorderRecording {
		return r.cycle.duration
	}
	elapsed := int(r.now().Sub(r.cycle.started) / r.unit)
	if elapsed > r.cycle.maxSec {
		elapsed = r.cycle.maxSec
	}
	return elapsed
}

// Remaining returns max(0, maxDurationSec - elapsed) for the current cycle.
func (r *Recorder) Remaining() int {
	elapsed := r.Elapsed()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cycle == nil || r.state != RecorderRecording {
		return 0
	}
	if rem := r.cycle.maxSec - elapsed; rem > 0 {
		return rem
	}
	return 0
}
