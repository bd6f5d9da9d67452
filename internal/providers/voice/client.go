package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/providers"
	"github.com/angelmondragon/personacast-backend/pkg/config"
)

const (
	providerName  = "voice"
	maxAudioBytes = 32 << 20
)

// Synthesizer turns text into speech with a cloned voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
}

// Cloner creates a provider voice from a sample recording.
type Cloner interface {
	CloneVoice(ctx context.Context, name, filename string, sample io.Reader) (string, error)
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Client talks to an ElevenLabs-compatible speech API.
type Client struct {
	http    *providers.Client
	modelID string
}

func New(cfg config.VoiceProviderConfig, doer providers.HTTPDoer) *Client {
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	return &Client{
		http: &providers.Client{
			Name:    providerName,
			BaseURL: cfg.BaseURL,
			HTTP:    doer,
			Authorize: func(req *http.Request) error {
				if apiKey == "" {
					return errors.New("missing api credentials")
				}
				req.Header.Set("xi-api-key", apiKey)
				return nil
			},
		},
		modelID: cfg.ModelID,
	}
}

// Synthesize returns MP3 audio for text spoken in voiceID.
func (c *Client) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, &providers.Error{Provider: providerName, Operation: "synthesize", Err: errors.New("voice id is required")}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &providers.Error{Provider: providerName, Operation: "synthesize", Err: errors.New("text is required")}
	}
	body, err := jsonBody(speechRequest{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, err
	}
	req, err := c.http.NewRequest(ctx, http.MethodPost, "/v1/text-to-speech/"+url.PathEscape(voiceID), body)
	if err != nil {
		return nil, &providers.Error{Provider: providerName, Operation: "synthesize", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	audio, err := c.http.Do("synthesize", req, maxAudioBytes)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, &providers.Error{Provider: providerName, Operation: "synthesize", Err: errors.New("empty audio")}
	}
	return audio, nil
}

// CloneVoice uploads sample as an instant voice clone and returns the voice id.
func (c *Client) CloneVoice(ctx context.Context, name, filename string, sample io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return "", &providers.Error{Provider: providerName, Operation: "clone", Err: err}
	}
	part, err := mw.CreateFormFile("files", filename)
	if err != nil {
		return "", &providers.Error{Provider: providerName, Operation: "clone", Err: err}
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", &providers.Error{Provider: providerName, Operation: "clone", Err: fmt.Errorf("copy sample: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return "", &providers.Error{Provider: providerName, Operation: "clone", Err: err}
	}

	req, err := c.http.NewRequest(ctx, http.MethodPost, "/v1/voices/add", &buf)
	if err != nil {
		return "", &providers.Error{Provider: providerName, Operation: "clone", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	raw, err := c.http.Do("clone", req, 1<<20)
	if err != nil {
		return "", err
	}
	var resp struct {
		VoiceID string `json:"voice_id"`
	}
	if err := decode(raw, &resp); err != nil || resp.VoiceID == "" {
		return "", &providers.Error{Provider: providerName, Operation: "clone", Err: errors.New("response missing voice_id")}
	}
	return resp.VoiceID, nil
}
