package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

type fakePrompter struct {
	mu     sync.Mutex
	spoken []string
	rates  []float64
	muted  bool
}

func (p *fakePrompter) Speak(text string, rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.muted {
		return
	}
	p.spoken = append(p.spoken, text)
	p.rates = append(p.rates, rate)
}

func (p *fakePrompter) Cancel() {}

func (p *fakePrompter) Mute() {
	p.mu.Lock()
	p.muted = true
	p.mu.Unlock()
}

func (p *fakePrompter) Unmute() {
	p.mu.Lock()
	p.muted = false
	p.mu.Unlock()
}

func (p *fakePrompter) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *fakePrompter) Spoken() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.spoken...)
}

// fakeRecorder answers immediately unless the start number is in hold, in
// which case it waits for Stop or ctx. Start numbers up to failFirst fail
// with a MediaAccessError.
type fakeRecorder struct {
	failFirst int
	hold      map[int]bool

	mu     sync.Mutex
	starts int
	stop   chan struct{}
}

func (r *fakeRecorder) Start(ctx context.Context, maxDurationSec int) (<-chan RecordingResult, error) {
	r.mu.Lock()
	r.starts++
	n := r.starts
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	if n <= r.failFirst {
		return nil, &MediaAccessError{Err: errors.New("permission denied")}
	}

	out := make(chan RecordingResult, 1)
	if !r.hold[n] {
		out <- RecordingResult{Blob: []byte(fmt.Sprintf("audio-%d", n)), DurationSec: 5}
		return out, nil
	}
	go func() {
		select {
		case <-ctx.Done():
			out <- RecordingResult{DurationSec: 1}
		case <-stop:
			out <- RecordingResult{Blob: []byte("held"), DurationSec: 2}
		}
	}()
	return out, nil
}

func (r *fakeRecorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *fakeRecorder) Elapsed() int   { return 0 }
func (r *fakeRecorder) Remaining() int { return 10 }

func (r *fakeRecorder) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

type fakeTranscriber struct {
	fail map[int]error

	mu    sync.Mutex
	ids   []int
	blobs []string
}

func (t *fakeTranscriber) Transcribe(_ context.Context, questionID int, audio []byte) (string, error) {
	t.mu.Lock()
	t.ids = append(t.ids, questionID)
	t.blobs = append(t.blobs, string(audio))
	t.mu.Unlock()
	if err := t.fail[questionID]; err != nil {
		return "", err
	}
	return fmt.Sprintf("answer to %d", questionID), nil
}

func (t *fakeTranscriber) IDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.ids...)
}

type fakeEvaluator struct {
	result *EvaluationResult
	err    error

	mu  sync.Mutex
	req *EvaluationRequest
}

func (e *fakeEvaluator) Evaluate(_ context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	e.mu.Lock()
	e.req = &req
	e.mu.Unlock()
	return e.result, e.err
}

func (e *fakeEvaluator) Request() *EvaluationRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req
}

// fakeStream yields data once and then blocks until closed.
type fakeStream struct {
	data   []byte
	off    int
	closed chan struct{}
	once   sync.Once
	closes atomic.Int32
}

func newFakeStream(data string) *fakeStream {
	return &fakeStream{data: []byte(data), closed: make(chan struct{})}
}

func (s *fakeStream) Read(p []byte) (int, error) {
	if s.off < len(s.data) {
		n := copy(p, s.data[s.off:])
		s.off += n
		return n, nil
	}
	<-s.closed
	return 0, io.EOF
}

func (s *fakeStream) Close() error {
	s.closes.Add(1)
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeSource struct {
	err error

	mu      sync.Mutex
	streams []*fakeStream
}

func (f *fakeSource) Open(context.Context) (MediaStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := newFakeStream("pcm")
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

func (f *fakeSource) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}
