// Package minimax implements the generation.Generator interface against the
// MiniMax image-generation and text-to-speech HTTP APIs.
package minimax

// imageGenerationRequest is the wire format for POST /v1/image_generation.
type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

// imageGenerationResponse is the wire format returned by image generation.
type imageGenerationResponse struct {
	ID   string `json:"id"`
	Data struct {
		ImageURLs []string `json:"image_urls"`
	} `json:"data"`
	BaseResp baseResp `json:"base_resp"`
}

// voiceSetting selects and tunes the synthesis voice.
type voiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed,omitempty"`
}

// audioSetting controls the output encoding.
type audioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

// t2aRequest is the wire format for POST /v1/t2a_v2.
type t2aRequest struct {
	Model        string       `json:"model"`
	Text         string       `json:"text"`
	Stream       bool         `json:"stream"`
	VoiceSetting voiceSetting `json:"voice_setting"`
	AudioSetting audioSetting `json:"audio_setting"`
}

// t2aResponse is the wire format returned by text-to-speech. Audio is
// hex-encoded.
type t2aResponse struct {
	Data struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"`
	} `json:"data"`
	BaseResp baseResp `json:"base_resp"`
}

// baseResp is the envelope status MiniMax attaches to every response body.
// A zero StatusCode means success even when the HTTP status is 200.
type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}
