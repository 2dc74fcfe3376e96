// Package media gives the interview access to the machine's microphone and
// speech synthesizer through external command-line tools.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"prepai-go/internal/interview"
)

// killAfter is how long a capture process gets to exit after an interrupt.
const killAfter = 2 * time.Second

// CommandSource captures audio by running a recorder command that writes the
// recording to stdout. The default is sox's rec producing 16 kHz mono WAV.
type CommandSource struct {
	Name string
	Args []string
}

// NewSoxSource returns a source running name (normally "rec") with the
// arguments sox needs to stream WAV to stdout.
func NewSoxSource(name string) *CommandSource {
	if name == "" {
		name = "rec"
	}
	return &CommandSource{
		Name: name,
		Args: []string{"-q", "-r", "16000", "-c", "1", "-b", "16", "-t", "wav", "-"},
	}
}

// Open starts the recorder process. The returned stream ends when the
// process exits; Close interrupts it.
func (s *CommandSource) Open(ctx context.Context) (interview.MediaStream, error) {
	path, err := exec.LookPath(s.Name)
	if err != nil {
		return nil, fmt.Errorf("audio recorder %q not found: %w", s.Name, err)
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, path, s.Args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach to recorder output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start audio recorder: %w", err)
	}

	return &commandStream{cmd: cmd, stdout: stdout, cancel: cancel}, nil
}

type commandStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc

	mu        sync.Mutex
	killTimer *time.Timer
	waitOnce  sync.Once
}

func (s *commandStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err != nil {
		s.wait()
		if !errors.Is(err, io.EOF) {
			err = io.EOF
		}
	}
	return n, err
}

// Close interrupts the recorder and kills it if it has not exited shortly
// after. Pending reads return once the process is gone.
func (s *commandStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.killTimer != nil {
		return nil
	}
	s.cancel()
	s.killTimer = time.AfterFunc(killAfter, func() {
		_ = s.cmd.Process.Kill()
	})
	return nil
}

func (s *commandStream) wait() {
	s.waitOnce.Do(func() {
		// The exit status of an interrupted recorder carries no information.
		_ = s.cmd.Wait()
		s.mu.Lock()
		if s.killTimer != nil {
			s.killTimer.Stop()
		}
		s.mu.Unlock()
		s.cancel()
	})
}
