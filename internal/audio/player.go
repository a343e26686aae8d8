package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// FFPlayPlayer decodes synthesized audio with ffplay and plays it on the
// default output device.
type FFPlayPlayer struct {
	command    string
	logger     *log.Logger
	startGrace time.Duration
	playing    sync.WaitGroup
}

func NewFFPlayPlayer(command string, logger *log.Logger) *FFPlayPlayer {
	if command == "" {
		command = "ffplay"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FFPlayPlayer{command: command, logger: logger, startGrace: 100 * time.Millisecond}
}

// Play starts playback and returns without waiting for it to finish. Errors
// that surface within the start grace period (missing binary, undecodable
// input) are returned; later failures are only logged.
func (p *FFPlayPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return errors.New("no audio to play")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(p.command,
		"-nodisp",
		"-autoexit",
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
	)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	p.playing.Add(1)
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	select {
	case err := <-waitErr:
		p.playing.Done()
		if err != nil {
			return fmt.Errorf("playback failed: %w: %s", err, stringsTrimSpaceSafe(stderr.String()))
		}
		return nil
	case <-time.After(p.startGrace):
	}

	go func() {
		defer p.playing.Done()
		if err := <-waitErr; err != nil {
			p.logger.Warn("playback ended with error", "error", err, "stderr", stringsTrimSpaceSafe(stderr.String()))
			return
		}
		p.logger.Debug("playback finished", "bytes", len(audio))
	}()
	return nil
}

// Wait blocks until every playback started by Play has ended.
func (p *FFPlayPlayer) Wait() {
	p.playing.Wait()
}
