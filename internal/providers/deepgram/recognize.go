package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"voxbridge/internal/domain"
)

const chunkSize = 8192

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
}

// Gateway implements ports.RecognitionGateway by replaying a finished
// buffer through Deepgram's live websocket and collecting final results.
type Gateway struct {
	cfg    Config
	logger *log.Logger
	dialer *websocket.Dialer
}

func NewGateway(cfg Config, logger *log.Logger) *Gateway {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{cfg: cfg, logger: logger, dialer: websocket.DefaultDialer}
}

func (g *Gateway) Recognize(ctx context.Context, req domain.RecognitionRequest) (domain.RecognitionResult, error) {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return domain.RecognitionResult{}, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	wsURL, err := buildListenURL(g.cfg, req)
	if err != nil {
		return domain.RecognitionResult{}, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+g.cfg.APIKey)

	conn, _, err := g.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return domain.RecognitionResult{}, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	s := &session{conn: conn, done: make(chan struct{})}
	go s.readLoop()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-s.done:
		}
	}()

	s.writeAudio(req.Audio)
	<-s.done
	_ = conn.Close()

	if err := ctx.Err(); err != nil {
		return domain.RecognitionResult{}, err
	}
	if err := s.waitErr(); err != nil {
		return domain.RecognitionResult{}, err
	}

	result := domain.RecognitionResult{Results: s.snapshot()}
	g.logger.Debug("deepgram recognition finished", "segments", len(result.Results))
	return result, nil
}

type session struct {
	conn *websocket.Conn
	done chan struct{}

	mu       sync.Mutex
	segments []domain.SegmentResult
	err      error
}

func (s *session) writeAudio(audio []byte) {
	for start := 0; start < len(audio); start += chunkSize {
		end := start + chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := s.conn.WriteMessage(websocket.BinaryMessage, audio[start:end]); err != nil {
			s.setErr(fmt.Errorf("failed to send audio: %w", err))
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *session) readLoop() {
	defer close(s.done)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(firstNonEmpty(response.Description, response.Message))
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.setErr(&domain.RemoteError{Message: message})
			return
		}

		if !response.IsFinal && !response.SpeechFinal {
			continue
		}
		alternative, ok := extractAlternative(response)
		if !ok {
			continue
		}
		s.mu.Lock()
		s.segments = append(s.segments, domain.SegmentResult{Alternatives: []domain.Alternative{alternative}})
		s.mu.Unlock()
	}
}

func (s *session) snapshot() []domain.SegmentResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SegmentResult(nil), s.segments...)
}

func (s *session) waitErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *session) setErr(err error) {
	if err == nil {
		return
	}
	if isNormalClose(err) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// isNormalClose reports whether err, possibly wrapped, is the server ending
// the stream rather than a failure.
func isNormalClose(err error) bool {
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	switch closeErr.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	}
	return false
}

type deepgramAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []deepgramAlternative `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []deepgramAlternative `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func extractAlternative(response deepgramResponse) (domain.Alternative, bool) {
	if len(response.Channel.Alternatives) > 0 {
		alt := response.Channel.Alternatives[0]
		if text := strings.TrimSpace(alt.Transcript); text != "" {
			return domain.Alternative{Transcript: text, Confidence: alt.Confidence}, true
		}
	}
	if len(response.Results.Channels) > 0 && len(response.Results.Channels[0].Alternatives) > 0 {
		alt := response.Results.Channels[0].Alternatives[0]
		if text := strings.TrimSpace(alt.Transcript); text != "" {
			return domain.Alternative{Transcript: text, Confidence: alt.Confidence}, true
		}
	}
	return domain.Alternative{}, false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func buildListenURL(cfg Config, req domain.RecognitionRequest) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	sampleRate := req.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	query.Set("channels", "1")
	query.Set("interim_results", "false")
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if req.LanguageCode != "" {
		query.Set("language", req.LanguageCode)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
