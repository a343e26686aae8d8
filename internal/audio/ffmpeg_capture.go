package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"voxbridge/internal/domain"
	"voxbridge/internal/ports"
)

// FFMPEGMicrophone acquires microphone input through an ffmpeg process that
// writes mono f32le samples to stdout.
type FFMPEGMicrophone struct {
	command     string
	inputFormat string
	inputDevice string
	// deviceRate forces the rate ffmpeg delivers, standing in for hardware
	// that only runs at its native rate. Zero honors the requested rate.
	deviceRate int
	startGrace time.Duration
}

// MicrophoneOptions configures FFMPEGMicrophone.
type MicrophoneOptions struct {
	Command     string
	InputFormat string
	InputDevice string
	DeviceRate  int
}

func NewFFMPEGMicrophone(opts MicrophoneOptions) *FFMPEGMicrophone {
	if opts.Command == "" {
		opts.Command = "ffmpeg"
	}
	if opts.InputFormat == "" {
		opts.InputFormat = "pulse"
	}
	if opts.InputDevice == "" {
		opts.InputDevice = "default"
	}
	return &FFMPEGMicrophone{
		command:     opts.Command,
		inputFormat: opts.InputFormat,
		inputDevice: opts.InputDevice,
		deviceRate:  opts.DeviceRate,
		startGrace:  250 * time.Millisecond,
	}
}

func (m *FFMPEGMicrophone) Acquire(ctx context.Context, cfg ports.MicrophoneConfig) (ports.MicrophoneStream, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	rate := cfg.SampleRate
	if m.deviceRate > 0 {
		rate = m.deviceRate
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", m.inputFormat,
		"-i", m.inputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"-",
	}

	// The capture outlives the Acquire call; Stop ends it.
	cmd := exec.Command(m.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ffmpeg stdout pipe: %v", domain.ErrDeviceError, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", domain.ErrDeviceError, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		return nil, classifyStartErr(err, stringsTrimSpaceSafe(stderr.String()))
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-waitErr
		return nil, ctx.Err()
	case <-time.After(m.startGrace):
	}

	return &ffmpegStream{
		stdout:     stdout,
		stderr:     &stderr,
		process:    cmd.Process,
		waitErr:    waitErr,
		sampleRate: rate,
	}, nil
}

func classifyStartErr(err error, stderr string) error {
	kind := domain.ErrDeviceError
	lower := strings.ToLower(stderr)
	if strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "operation not permitted") ||
		strings.Contains(lower, "access denied") {
		kind = domain.ErrPermissionDenied
	}

	if err != nil {
		if stderr == "" {
			return fmt.Errorf("%w: ffmpeg exited before capture started: %v", kind, err)
		}
		return fmt.Errorf("%w: ffmpeg exited before capture started: %v: %s", kind, err, stderr)
	}
	return fmt.Errorf("%w: ffmpeg exited before capture started", kind)
}

type ffmpegStream struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	sampleRate int

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegStream) SampleRate() int {
	return s.sampleRate
}

func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, stringsTrimSpaceSafe(s.stderr.String()))
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
