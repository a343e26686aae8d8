// Package google implements the recognition and synthesis gateways on top of
// the Cloud Speech-to-Text and Text-to-Speech REST APIs, authenticated with
// an API key.
package google

import (
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"voxbridge/internal/domain"
)

const (
	DefaultSpeechEndpoint    = "https://speech.googleapis.com/"
	DefaultSynthesisEndpoint = "https://texttospeech.googleapis.com/"
)

// Config controls access to the Google REST APIs.
type Config struct {
	APIKey string
	// Endpoint overrides the API root, e.g. a regional speech endpoint.
	Endpoint string
	// Voice selects a named voice for synthesis; empty lets the API pick
	// one for the language.
	Voice string
}

func clientOptions(cfg Config, fallback string) ([]option.ClientOption, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GOOGLE_API_KEY is not configured")
	}
	return []option.ClientOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithEndpoint(normalizeEndpoint(cfg.Endpoint, fallback)),
	}, nil
}

func normalizeEndpoint(endpoint string, fallback string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = fallback
	}
	return strings.TrimRight(endpoint, "/") + "/"
}

// remoteError turns an error payload from the API into a domain.RemoteError
// carrying the service's own message.
func remoteError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = strings.TrimSpace(apiErr.Body)
	}
	return &domain.RemoteError{Code: apiErr.Code, Message: message}
}
