package media

import (
	"context"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepai-go/internal/interview"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func TestCommandSourceMissingBinary(t *testing.T) {
	src := &CommandSource{Name: "prepai-no-such-recorder"}
	_, err := src.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	// The recorder turns this into a MediaAccessError.
	_, err = interview.NewRecorder(src).Start(context.Background(), 5)
	var mediaErr *interview.MediaAccessError
	assert.ErrorAs(t, err, &mediaErr)
}

func TestCommandSourceReadsOutput(t *testing.T) {
	requireCommand(t, "printf")
	src := &CommandSource{Name: "printf", Args: []string{"pcm-bytes"}}

	stream, err := src.Open(context.Background())
	require.NoError(t, err)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "pcm-bytes", string(data))
	assert.NoError(t, stream.Close())
}

func TestCommandSourceCloseEndsCapture(t *testing.T) {
	requireCommand(t, "sleep")
	src := &CommandSource{Name: "sleep", Args: []string{"30"}}

	stream, err := src.Open(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(io.Discard, stream)
	}()

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after Close")
	}
}

func TestSoxSourceDefaults(t *testing.T) {
	src := NewSoxSource("")
	assert.Equal(t, "rec", src.Name)
	assert.Contains(t, src.Args, "wav")
	assert.Equal(t, "-", src.Args[len(src.Args)-1])
}

func TestSynthesizerArgs(t *testing.T) {
	espeak := &CommandSynthesizer{Name: "espeak"}
	assert.Equal(t, []string{"-s", "175", "hello"}, espeak.args("hello", 1))
	assert.Equal(t, []string{"-s", "263", "hello"}, espeak.args("hello", 1.5))

	say := &CommandSynthesizer{Name: "say"}
	assert.Equal(t, []string{"-r", "105", "hi"}, say.args("hi", 0.6))
}

func TestSynthesizerAvailability(t *testing.T) {
	assert.False(t, (&CommandSynthesizer{}).Available())
	assert.False(t, (&CommandSynthesizer{Name: "prepai-no-such-voice"}).Available())

	// A missing synthesizer leaves the voice silent instead of failing.
	v := interview.NewVoice(&CommandSynthesizer{Name: "prepai-no-such-voice"})
	v.Speak("Tell me about yourself.", 1)
	v.Wait()
}
