// Package transcribe converts recorded audio blobs to text through the
// OpenAI transcription endpoint. It is the fallback input path for
// setups without a realtime-capable microphone pipeline: record, send
// the blob here, then feed the transcript into the session as a text
// turn.
package transcribe

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/jmolenaar/hartstem/pkg/audio"
)

// ErrNoSpeech is returned when the endpoint produced an empty
// transcript, meaning the blob held no recognizable speech.
var ErrNoSpeech = errors.New("transcribe: no speech recognized")

// ErrUnauthorized is returned when the API rejected the credential.
var ErrUnauthorized = errors.New("transcribe: invalid credential")

const defaultModel = "whisper-1"

// Option is a functional option for Client.
type Option func(*config)

type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// WithModel overrides the transcription model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL overrides the API base URL. Primarily used in tests to
// point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Client transcribes audio blobs. Safe for concurrent use.
type Client struct {
	client oai.Client
	model  string
}

// New constructs a transcription Client with the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("transcribe: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Client{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Transcribe submits one utterance of mono samples and returns the
// recognized text. language is a BCP-47 code ("nl"); prompt biases the
// model toward domain vocabulary and may be empty.
func (c *Client) Transcribe(ctx context.Context, samples []float32, language, prompt string) (string, error) {
	if len(samples) == 0 {
		return "", ErrNoSpeech
	}

	wav := encodeWAV(audio.EncodePCM16(samples), audio.SampleRate, audio.Channels)

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: oai.AudioModel(c.model),
	}
	if language != "" {
		params.Language = param.NewOpt(language)
	}
	if prompt != "" {
		params.Prompt = param.NewOpt(prompt)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return "", fmt.Errorf("transcribe: request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// encodeWAV wraps raw 16-bit signed little-endian PCM data in a
// standard RIFF/WAV container.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}
