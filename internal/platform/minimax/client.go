package minimax

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/PsychArch/minimax-mcp-tools/internal/generation"
)

const (
	imageGenerationPath = "/v1/image_generation"
	t2aPath             = "/v1/t2a_v2"

	// downloadRetries is how many times a transient failure fetching a
	// generated image URL is retried before giving up. Rate-limit and
	// API errors are never retried here — they must propagate to the
	// adaptive limiter.
	downloadRetries = 3
)

// Config holds the settings the client needs to talk to MiniMax.
type Config struct {
	// APIKey is the MiniMax API key, sent as a bearer token.
	APIKey string

	// APIHost is the API base URL, e.g. "https://api.minimax.chat".
	APIHost string

	// ImageModel is the image-generation model name.
	ImageModel string

	// SpeechModel is the text-to-speech model name.
	SpeechModel string

	// HTTPClient overrides the default HTTP client when set.
	HTTPClient *http.Client
}

// Client talks to the MiniMax generation APIs. It implements
// generation.Generator; all failures it returns carry a *generation.Error.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a MiniMax client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, generation.NewError(generation.KindConfiguration, "minimax API key cannot be empty", nil)
	}
	if cfg.APIHost == "" {
		return nil, generation.NewError(generation.KindConfiguration, "minimax API host cannot be empty", nil)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With("component", "minimax_client"),
	}, nil
}

// GenerateImage performs one image-generation call and downloads every
// returned image URL.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error) {
	if req.Prompt == "" {
		return nil, generation.NewError(generation.KindValidation, "image prompt cannot be empty", nil)
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	payload := imageGenerationRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         req.Prompt,
		AspectRatio:    req.AspectRatio,
		N:              count,
		ResponseFormat: "url",
	}
	var resp imageGenerationResponse
	if err := c.post(ctx, imageGenerationPath, payload, &resp); err != nil {
		return nil, err
	}
	if err := classifyBaseResp(resp.BaseResp); err != nil {
		return nil, err
	}
	if len(resp.Data.ImageURLs) == 0 {
		return nil, generation.NewError(generation.KindGeneric, "minimax returned no image urls", nil)
	}

	images := make([][]byte, 0, len(resp.Data.ImageURLs))
	for _, url := range resp.Data.ImageURLs {
		data, err := c.download(ctx, url)
		if err != nil {
			return nil, err
		}
		images = append(images, data)
	}

	c.logger.Debug("image generation succeeded",
		"request_id", resp.ID,
		"images", len(images))
	return &generation.ImageResult{Images: images, Format: "jpg"}, nil
}

// GenerateSpeech performs one text-to-speech call and decodes the
// hex-encoded audio payload.
func (c *Client) GenerateSpeech(ctx context.Context, req generation.SpeechRequest) (*generation.SpeechResult, error) {
	if req.Text == "" {
		return nil, generation.NewError(generation.KindValidation, "speech text cannot be empty", nil)
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = "male-qn-qingse"
	}

	payload := t2aRequest{
		Model:  c.cfg.SpeechModel,
		Text:   req.Text,
		Stream: false,
		VoiceSetting: voiceSetting{
			VoiceID: voiceID,
			Speed:   req.Speed,
		},
		AudioSetting: audioSetting{
			SampleRate: 32000,
			Bitrate:    128000,
			Format:     "mp3",
			Channel:    1,
		},
	}
	var resp t2aResponse
	if err := c.post(ctx, t2aPath, payload, &resp); err != nil {
		return nil, err
	}
	if err := classifyBaseResp(resp.BaseResp); err != nil {
		return nil, err
	}
	if resp.Data.Audio == "" {
		return nil, generation.NewError(generation.KindGeneric, "minimax returned no audio data", nil)
	}

	audio, err := hex.DecodeString(resp.Data.Audio)
	if err != nil {
		return nil, generation.NewError(generation.KindGeneric, "minimax audio payload is not valid hex", err)
	}

	c.logger.Debug("speech generation succeeded", "bytes", len(audio))
	return &generation.SpeechResult{Audio: audio, Format: "mp3"}, nil
}

// post sends a JSON request to the given API path and decodes the JSON
// response into out.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return generation.NewError(generation.KindGeneric, "encoding minimax request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIHost+path, bytes.NewReader(body))
	if err != nil {
		return generation.NewError(generation.KindGeneric, "building minimax request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close minimax response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return generation.NewError(generation.KindNetwork, "reading minimax response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return classifyHTTPStatus(resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return generation.NewError(generation.KindGeneric, "decoding minimax response", err)
	}
	return nil
}

// download fetches a generated asset URL, retrying transient network
// failures with fibonacci backoff.
func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	backoff := retry.WithMaxRetries(downloadRetries, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return generation.NewError(generation.KindGeneric, "building download request", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(classifyTransport(err))
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			err := generation.NewError(generation.KindNetwork,
				fmt.Sprintf("downloading image: HTTP %d", resp.StatusCode), nil)
			if resp.StatusCode >= http.StatusInternalServerError {
				return retry.RetryableError(err)
			}
			return err
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(generation.NewError(generation.KindNetwork, "reading image download", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
