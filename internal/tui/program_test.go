package tui

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepai-go/internal/interview"
)

// TestProgramStaysResponsiveToVoiceKeys runs a real orchestrator behind a
// real program wired the same way the interview command wires them.
func TestProgramStaysResponsiveToVoiceKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var program *tea.Program
	orch := interview.NewOrchestrator(
		[]interview.Question{{ID: 1, Text: "Tell me about yourself.", SuggestedTimeSec: 60}},
		nil, nil, nil, nil,
		interview.Options{
			StartCountdown: 1000,
			Tick:           time.Hour,
			SpeechRate:     1.0,
			OnChange: func(s interview.Snapshot) {
				program.Send(SnapshotMsg(s))
			},
		},
	)
	program = tea.NewProgram(NewModel(orch, Options{Cancel: cancel}),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan error, 1)
	go func() {
		err := orch.Run(ctx)
		program.Send(DoneMsg{Err: err})
		runDone <- err
	}()
	progDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		progDone <- err
	}()

	program.Send(key("m"))
	program.Send(key("+"))
	assert.Eventually(t, func() bool {
		s := orch.Snapshot()
		return s.Muted && s.SpeechRate > 1.05
	}, 2*time.Second, 10*time.Millisecond)

	program.Send(key("q"))
	select {
	case err := <-progDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("program did not exit after quit")
	}
	select {
	case err := <-runDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("interview did not stop after quit")
	}
}
