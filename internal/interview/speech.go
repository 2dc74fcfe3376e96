package interview

import (
	"context"
	"sync"
)

// Speech rate bounds, as a multiple of the synthesizer's normal rate.
const (
	MinSpeechRate = 0.6
	MaxSpeechRate = 1.6
)

// SpeechPrompter reads questions aloud. Speak never blocks on the
// utterance finishing; while muted it does nothing.
type SpeechPrompter interface {
	Speak(text string, rate float64)
	Cancel()
	Mute()
	Unmute()
	Muted() bool
}

// Synthesizer is an on-device text-to-speech engine. Say blocks until the
// utterance is done or ctx is cancelled.
type Synthesizer interface {
	Say(ctx context.Context, text string, rate float64) error
	Available() bool
}

// ClampRate bounds rate to [MinSpeechRate, MaxSpeechRate]; non-positive
// rates mean normal speed.
func ClampRate(rate float64) float64 {
	switch {
	case rate <= 0:
		return 1
	case rate < MinSpeechRate:
		return MinSpeechRate
	case rate > MaxSpeechRate:
		return MaxSpeechRate
	}
	return rate
}

// Voice is the SpeechPrompter used in a session. Without a usable
// synthesizer it does nothing and the question is shown as text only.
type Voice struct {
	synth Synthesizer

	mu     sync.Mutex
	muted  bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewVoice wraps synth, which may be nil.
func NewVoice(synth Synthesizer) *Voice {
	return &Voice{synth: synth}
}

// Speak cancels whatever is being said and starts saying text.
func (v *Voice) Speak(text string, rate float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stopLocked()
	if v.muted || text == "" || v.synth == nil || !v.synth.Available() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		// Failures are not surfaced; the question is on screen anyway.
		_ = v.synth.Say(ctx, text, ClampRate(rate))
	}()
}

// Cancel stops the current utterance, if any.
func (v *Voice) Cancel() {
	v.mu.Lock()
	v.stopLocked()
	v.mu.Unlock()
}

// Mute stops speech and suppresses further prompts until Unmute.
func (v *Voice) Mute() {
	v.mu.Lock()
	v.muted = true
	v.stopLocked()
	v.mu.Unlock()
}

func (v *Voice) Unmute() {
	v.mu.Lock()
	v.muted = false
	v.mu.Unlock()
}

func (v *Voice) Muted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.muted
}

// Wait blocks until no utterance is in flight.
func (v *Voice) Wait() {
	v.wg.Wait()
}

func (v *Voice) stopLocked() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}
