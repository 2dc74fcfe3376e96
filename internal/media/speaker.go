package media

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
)

// normalWPM is the words-per-minute both espeak and say treat as rate 1.0.
const normalWPM = 175

// CommandSynthesizer speaks through espeak (Linux) or say (macOS).
type CommandSynthesizer struct {
	Name string
}

// NewSynthesizer returns a synthesizer running name. An empty name picks
// the first of espeak, say that is installed.
func NewSynthesizer(name string) *CommandSynthesizer {
	if name == "" {
		for _, candidate := range []string{"espeak", "say"} {
			if _, err := exec.LookPath(candidate); err == nil {
				name = candidate
				break
			}
		}
	}
	return &CommandSynthesizer{Name: name}
}

// Available reports whether the synthesizer binary can be found.
func (s *CommandSynthesizer) Available() bool {
	if s.Name == "" {
		return false
	}
	_, err := exec.LookPath(s.Name)
	return err == nil
}

// Say blocks until text has been spoken or ctx is cancelled.
func (s *CommandSynthesizer) Say(ctx context.Context, text string, rate float64) error {
	cmd := exec.CommandContext(ctx, s.Name, s.args(text, rate)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w", s.Name, err)
	}
	return nil
}

func (s *CommandSynthesizer) args(text string, rate float64) []string {
	wpm := strconv.Itoa(int(math.Round(normalWPM * rate)))
	switch s.Name {
	case "say":
		return []string{"-r", wpm, text}
	default:
		return []string{"-s", wpm, text}
	}
}
