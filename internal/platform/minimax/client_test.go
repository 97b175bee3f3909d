package minimax

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PsychArch/minimax-mcp-tools/internal/generation"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestClient(t *testing.T, host string) *Client {
	t.Helper()
	client, err := New(Config{
		APIKey:      "test-key",
		APIHost:     host,
		ImageModel:  "image-01",
		SpeechModel: "speech-02-hd",
	}, setupTestLogger())
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()

		_, err := New(Config{APIHost: "https://api.minimax.chat"}, setupTestLogger())
		require.Error(t, err)
		assert.Equal(t, generation.KindConfiguration, generation.KindOf(err))
	})

	t.Run("missing api host", func(t *testing.T) {
		t.Parallel()

		_, err := New(Config{APIKey: "k"}, setupTestLogger())
		require.Error(t, err)
		assert.Equal(t, generation.KindConfiguration, generation.KindOf(err))
	})

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		_, err := New(Config{APIKey: "k", APIHost: "h"}, nil)
		assert.Error(t, err)
	})
}

func TestClient_GenerateImage(t *testing.T) {
	t.Parallel()

	imageBytes := []byte("fake-jpeg-bytes")
	var gotAuth string
	var gotReq imageGenerationRequest

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v1/image_generation", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := imageGenerationResponse{ID: "req-1"}
		resp.Data.ImageURLs = []string{server.URL + "/assets/1.jpg"}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	mux.HandleFunc("/assets/1.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(imageBytes)
	})

	client := newTestClient(t, server.URL)
	result, err := client.GenerateImage(context.Background(), generation.ImageRequest{
		Prompt:      "a red fox",
		AspectRatio: "16:9",
		Count:       1,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "image-01", gotReq.Model)
	assert.Equal(t, "a red fox", gotReq.Prompt)
	assert.Equal(t, "url", gotReq.ResponseFormat)

	require.Len(t, result.Images, 1)
	assert.Equal(t, imageBytes, result.Images[0])
	assert.Equal(t, "jpg", result.Format)
}

func TestClient_GenerateImage_EmptyPrompt(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://unused.invalid")
	_, err := client.GenerateImage(context.Background(), generation.ImageRequest{})
	require.Error(t, err)
	assert.Equal(t, generation.KindValidation, generation.KindOf(err))
}

func TestClient_GenerateImage_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    generation.Kind
	}{
		{
			name: "base_resp rate limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				resp := imageGenerationResponse{
					BaseResp: baseResp{StatusCode: statusCodeRateLimit, StatusMsg: "rate limit"},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			want: generation.KindRateLimit,
		},
		{
			name: "http 429",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: generation.KindRateLimit,
		},
		{
			name: "base_resp auth failed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				resp := imageGenerationResponse{
					BaseResp: baseResp{StatusCode: statusCodeAuthFailed, StatusMsg: "auth failed"},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			want: generation.KindConfiguration,
		},
		{
			name: "base_resp invalid params",
			handler: func(w http.ResponseWriter, r *http.Request) {
				resp := imageGenerationResponse{
					BaseResp: baseResp{StatusCode: statusCodeInvalidParams, StatusMsg: "bad params"},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			want: generation.KindValidation,
		},
		{
			name: "http 400",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			want: generation.KindValidation,
		},
		{
			name: "unknown base_resp code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				resp := imageGenerationResponse{
					BaseResp: baseResp{StatusCode: 9999, StatusMsg: "mystery"},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			want: generation.KindGeneric,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient(t, server.URL)
			_, err := client.GenerateImage(context.Background(), generation.ImageRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.want, generation.KindOf(err))
		})
	}
}

func TestClient_GenerateImage_NetworkFailure(t *testing.T) {
	t.Parallel()

	// A server that is already closed produces a connect failure.
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GenerateImage(context.Background(), generation.ImageRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, generation.KindNetwork, generation.KindOf(err))
}

func TestClient_GenerateSpeech(t *testing.T) {
	t.Parallel()

	audio := []byte("fake-mp3-bytes")
	var gotReq t2aRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/t2a_v2", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := t2aResponse{}
		resp.Data.Audio = hex.EncodeToString(audio)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.GenerateSpeech(context.Background(), generation.SpeechRequest{
		Text:    "hello world",
		VoiceID: "female-tianmei",
		Speed:   1.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "speech-02-hd", gotReq.Model)
	assert.Equal(t, "hello world", gotReq.Text)
	assert.Equal(t, "female-tianmei", gotReq.VoiceSetting.VoiceID)
	assert.Equal(t, "mp3", gotReq.AudioSetting.Format)

	assert.Equal(t, audio, result.Audio)
	assert.Equal(t, "mp3", result.Format)
}

func TestClient_GenerateSpeech_InvalidHex(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := t2aResponse{}
		resp.Data.Audio = "not-hex!"
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GenerateSpeech(context.Background(), generation.SpeechRequest{Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, generation.KindGeneric, generation.KindOf(err))
}

func TestClient_DownloadRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	imageBytes := []byte("eventually-served")
	var attempts int

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/v1/image_generation", func(w http.ResponseWriter, r *http.Request) {
		resp := imageGenerationResponse{ID: "req-2"}
		resp.Data.ImageURLs = []string{server.URL + "/assets/flaky.jpg"}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/assets/flaky.jpg", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(imageBytes)
	})

	client := newTestClient(t, server.URL)
	result, err := client.GenerateImage(context.Background(), generation.ImageRequest{Prompt: "x"})
	require.NoError(t, err)
	require.Len(t, result.Images, 1)
	assert.Equal(t, imageBytes, result.Images[0])
	assert.Equal(t, 3, attempts)
}

func TestClient_GenerateImage_NoURLs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"req-3","data":{"image_urls":[]},"base_resp":{"status_code":0}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GenerateImage(context.Background(), generation.ImageRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, generation.KindGeneric, generation.KindOf(err))
}
