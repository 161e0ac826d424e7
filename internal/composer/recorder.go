package composer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// MicRecorder captures microphone audio through ffmpeg into a temp file.
// One recording at a time.
type MicRecorder struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
}

// NewMicRecorder creates an idle microphone recorder.
func NewMicRecorder() *MicRecorder {
	return &MicRecorder{}
}

// Start launches the capture process. Fails when ffmpeg is missing or the
// audio device cannot be opened.
func (r *MicRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return errors.New("recording already in progress")
	}

	path := filepath.Join(os.TempDir(), "classchat-rec-"+uuid.NewString()+".mp3")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-loglevel", "quiet",
		"-f", "pulse", "-i", "default",
		"-ac", "1", "-b:a", "64k",
		path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	r.cmd = cmd
	r.path = path
	return nil
}

// Stop ends the capture and returns the recorded audio. The temp file is
// removed either way.
func (r *MicRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	cmd := r.cmd
	path := r.path
	r.cmd = nil
	r.path = ""
	r.mu.Unlock()

	if cmd == nil {
		return nil, errors.New("no recording in progress")
	}
	defer func() { _ = os.Remove(path) }()

	// ffmpeg finalizes the file on interrupt; its exit code is non-zero
	// by convention, so only the file tells us whether capture worked.
	_ = cmd.Process.Signal(os.Interrupt)
	_ = cmd.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("capture produced no audio")
	}
	return data, nil
}
