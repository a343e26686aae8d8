package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"voxbridge/internal/domain"
	"voxbridge/internal/pcm"
	"voxbridge/internal/ports"
)

// logSink reports session events through the process logger.
type logSink struct {
	logger *log.Logger
}

func (s *logSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.log().Debug("session", "state", state, "reason", reason)
}

func (s *logSink) FinalTranscript(raw string, transformed string) {
	if raw != transformed {
		s.log().Debug("rules applied", "raw", raw, "transformed", transformed)
	}
}

func (s *logSink) SessionError(code domain.ErrorCode, detail string) {
	s.log().Warn("session error", "code", code, "detail", detail)
}

func (s *logSink) log() *log.Logger {
	if s.logger == nil {
		return log.Default()
	}
	return s.logger
}

// savingGateway writes every buffer it forwards to path as a WAV file.
type savingGateway struct {
	next ports.RecognitionGateway
	path string
}

func (g *savingGateway) Recognize(ctx context.Context, req domain.RecognitionRequest) (domain.RecognitionResult, error) {
	wav, err := pcm.EncodeWAV(req.Audio, req.SampleRate)
	if err != nil {
		return domain.RecognitionResult{}, err
	}
	if err := os.WriteFile(g.path, wav, 0o644); err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("failed to save capture: %w", err)
	}
	return g.next.Recognize(ctx, req)
}
