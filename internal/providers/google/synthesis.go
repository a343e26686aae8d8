package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/api/texttospeech/v1"

	"voxbridge/internal/domain"
)

// SynthesisGateway implements ports.SynthesisGateway with text:synthesize.
// Audio comes back as LINEAR16 in a WAV container.
type SynthesisGateway struct {
	cfg Config

	mu      sync.Mutex
	service *texttospeech.Service
}

func NewSynthesisGateway(cfg Config) *SynthesisGateway {
	cfg.Endpoint = normalizeEndpoint(cfg.Endpoint, DefaultSynthesisEndpoint)
	return &SynthesisGateway{cfg: cfg}
}

func (g *SynthesisGateway) Synthesize(ctx context.Context, req domain.SynthesisRequest) ([]byte, error) {
	svc, err := g.synthesisService(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: req.LanguageCode,
			Name:         g.cfg.Voice,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "LINEAR16"},
	})

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, remoteError(err)
	}
	if resp.AudioContent == "" {
		return nil, errors.New("synthesis response carried no audio")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}
	return audio, nil
}

func (g *SynthesisGateway) synthesisService(ctx context.Context) (*texttospeech.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.service != nil {
		return g.service, nil
	}

	opts, err := clientOptions(g.cfg, DefaultSynthesisEndpoint)
	if err != nil {
		return nil, err
	}
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	g.service = svc
	return svc, nil
}
