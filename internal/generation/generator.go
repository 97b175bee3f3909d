package generation

import "context"

// ImageRequest describes one remote image-generation call.
type ImageRequest struct {
	// Prompt is the text description of the desired image.
	Prompt string

	// AspectRatio is the MiniMax aspect ratio string (e.g. "1:1", "16:9").
	// Empty means the service default.
	AspectRatio string

	// Count is the number of images to generate. Zero means 1.
	Count int
}

// ImageResult holds the generated image payloads.
type ImageResult struct {
	// Images are the raw image bytes, one element per generated image.
	Images [][]byte

	// Format is the file extension of the payloads (e.g. "jpg").
	Format string
}

// SpeechRequest describes one remote text-to-speech call.
type SpeechRequest struct {
	// Text is the content to synthesize.
	Text string

	// VoiceID selects the voice. Empty means the service default.
	VoiceID string

	// Speed adjusts the speaking rate. Zero means the service default.
	Speed float64
}

// SpeechResult holds the synthesized audio payload.
type SpeechResult struct {
	// Audio is the raw audio bytes.
	Audio []byte

	// Format is the file extension of the payload (e.g. "mp3").
	Format string
}

// Generator is the interface to the remote generation service. It serves as
// a boundary between the application core and the MiniMax API, so the
// scheduler and service layers never depend on HTTP details.
type Generator interface {
	// GenerateImage performs one remote image-generation call. Failures
	// carry a *generation.Error so callers can classify them.
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)

	// GenerateSpeech performs one remote text-to-speech call. Failures
	// carry a *generation.Error so callers can classify them.
	GenerateSpeech(ctx context.Context, req SpeechRequest) (*SpeechResult, error)
}
