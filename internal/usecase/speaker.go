package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"voxbridge/internal/domain"
	"voxbridge/internal/ports"
)

// Speaker synthesizes text remotely and plays the returned audio.
type Speaker struct {
	gateway      ports.SynthesisGateway
	player       ports.AudioPlayer
	logger       *log.Logger
	languageCode string
}

func NewSpeaker(gateway ports.SynthesisGateway, player ports.AudioPlayer, logger *log.Logger, languageCode string) *Speaker {
	if languageCode == "" {
		languageCode = "en-US"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Speaker{gateway: gateway, player: player, logger: logger, languageCode: languageCode}
}

// Speak synthesizes text and starts playback. Gateway errors are returned
// unchanged and nothing is played.
func (s *Speaker) Speak(ctx context.Context, text string, languageCode string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyText
	}
	if languageCode == "" {
		languageCode = s.languageCode
	}

	audio, err := s.gateway.Synthesize(ctx, domain.SynthesisRequest{Text: text, LanguageCode: languageCode})
	if err != nil {
		s.logger.Error("synthesis failed", "error", err)
		return err
	}

	s.logger.Debug("playing synthesized audio", "size", humanize.Bytes(uint64(len(audio))), "language", languageCode)
	if err := s.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("failed to play synthesized audio: %w", err)
	}
	return nil
}
