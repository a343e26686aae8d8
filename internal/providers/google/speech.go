package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"google.golang.org/api/speech/v1"

	"voxbridge/internal/domain"
)

// SpeechGateway implements ports.RecognitionGateway with speech:recognize.
type SpeechGateway struct {
	cfg Config

	mu      sync.Mutex
	service *speech.Service
}

func NewSpeechGateway(cfg Config) *SpeechGateway {
	cfg.Endpoint = normalizeEndpoint(cfg.Endpoint, DefaultSpeechEndpoint)
	return &SpeechGateway{cfg: cfg}
}

func (g *SpeechGateway) Recognize(ctx context.Context, req domain.RecognitionRequest) (domain.RecognitionResult, error) {
	svc, err := g.speechService(ctx)
	if err != nil {
		return domain.RecognitionResult{}, err
	}

	call := svc.Speech.Recognize(&speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: int64(req.SampleRate),
			LanguageCode:    req.LanguageCode,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(req.Audio),
		},
	})

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return domain.RecognitionResult{}, remoteError(err)
	}
	return toRecognitionResult(resp), nil
}

func (g *SpeechGateway) speechService(ctx context.Context) (*speech.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.service != nil {
		return g.service, nil
	}

	opts, err := clientOptions(g.cfg, DefaultSpeechEndpoint)
	if err != nil {
		return nil, err
	}
	svc, err := speech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	g.service = svc
	return svc, nil
}

func toRecognitionResult(resp *speech.RecognizeResponse) domain.RecognitionResult {
	if resp == nil {
		return domain.RecognitionResult{}
	}
	segments := lo.FilterMap(resp.Results, func(r *speech.SpeechRecognitionResult, _ int) (domain.SegmentResult, bool) {
		if r == nil || len(r.Alternatives) == 0 {
			return domain.SegmentResult{}, false
		}
		alternatives := lo.FilterMap(r.Alternatives, func(a *speech.SpeechRecognitionAlternative, _ int) (domain.Alternative, bool) {
			if a == nil {
				return domain.Alternative{}, false
			}
			return domain.Alternative{Transcript: a.Transcript, Confidence: a.Confidence}, true
		})
		return domain.SegmentResult{Alternatives: alternatives, LanguageCode: r.LanguageCode}, len(alternatives) > 0
	})
	return domain.RecognitionResult{Results: segments}
}
