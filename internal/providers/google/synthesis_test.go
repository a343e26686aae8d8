package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"voxbridge/internal/domain"
)

func TestSynthesisGatewaySynthesize(t *testing.T) {
	t.Parallel()

	var got struct {
		Input struct {
			Text string `json:"text"`
		} `json:"input"`
		Voice struct {
			LanguageCode string `json:"languageCode"`
			Name         string `json:"name"`
		} `json:"voice"`
		AudioConfig struct {
			AudioEncoding string `json:"audioEncoding"`
		} `json:"audioConfig"`
	}
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("RIFFdata")),
		})
	}))
	defer server.Close()

	gateway := NewSynthesisGateway(Config{APIKey: "secret", Endpoint: server.URL, Voice: "en-US-Standard-C"})
	audio, err := gateway.Synthesize(context.Background(), domain.SynthesisRequest{Text: "hi there", LanguageCode: "en-US"})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	if gotPath != "/v1/text:synthesize" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if got.Input.Text != "hi there" || got.Voice.LanguageCode != "en-US" || got.Voice.Name != "en-US-Standard-C" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.AudioConfig.AudioEncoding != "LINEAR16" {
		t.Fatalf("unexpected encoding: %q", got.AudioConfig.AudioEncoding)
	}
	if string(audio) != "RIFFdata" {
		t.Fatalf("unexpected audio: %q", audio)
	}
}

func TestSynthesisGatewayRemoteError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid. Please pass a valid API key.","status":"PERMISSION_DENIED"}}`)
	}))
	defer server.Close()

	gateway := NewSynthesisGateway(Config{APIKey: "bad", Endpoint: server.URL})
	_, err := gateway.Synthesize(context.Background(), domain.SynthesisRequest{Text: "hi"})

	remote, ok := domain.AsRemoteError(err)
	if !ok || remote.Message != "API key not valid. Please pass a valid API key." {
		t.Fatalf("expected remote error with the service message, got %v", err)
	}
}

func TestSynthesisGatewayEmptyAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer server.Close()

	gateway := NewSynthesisGateway(Config{APIKey: "secret", Endpoint: server.URL})
	if _, err := gateway.Synthesize(context.Background(), domain.SynthesisRequest{Text: "hi"}); err == nil {
		t.Fatalf("expected error for empty audio")
	}
}
