// Package realtime maintains a duplex websocket connection to OpenAI's
// Realtime API.
//
// A Conn owns a single receive goroutine that decodes every inbound
// envelope through the wire package and delivers the resulting events
// in arrival order on Events(). Audio deltas are base64-decoded and
// converted to float32 samples before delivery, so consumers never see
// transport encodings. Protocol-level error events are delivered as
// regular events; the connection stays open.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/jmolenaar/hartstem/pkg/audio"
	"github.com/jmolenaar/hartstem/pkg/wire"
)

const (
	defaultModel   = "gpt-4o-realtime-preview"
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
)

// ── Options ────────────────────────────────────────────────────────────────────

type dialConfig struct {
	model   string
	baseURL string
}

// Option is a functional option for Dial.
type Option func(*dialConfig)

// WithModel sets the realtime model requested in the connection URL.
func WithModel(model string) Option {
	return func(c *dialConfig) { c.model = model }
}

// WithBaseURL overrides the base WebSocket URL. Primarily used in tests
// to point at a local mock server.
func WithBaseURL(url string) Option {
	return func(c *dialConfig) { c.baseURL = url }
}

// ── Conn ───────────────────────────────────────────────────────────────────────

// Conn is a live realtime session. All Send* methods are safe for
// concurrent use; Events() is read by a single consumer.
type Conn struct {
	conn   *websocket.Conn
	events chan wire.ServerEvent

	mu     sync.Mutex
	errVal error
	closed bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Dial opens a websocket session to the realtime endpoint and starts
// the receive loop. The caller must Close the returned Conn.
func Dial(ctx context.Context, apiKey string, opts ...Option) (*Conn, error) {
	cfg := dialConfig{
		model:   defaultModel,
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(&cfg)
	}

	wsURL := fmt.Sprintf("%s?model=%s", cfg.baseURL, cfg.model)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + apiKey},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		conn:   conn,
		events: make(chan wire.ServerEvent, 64),
		ctx:    connCtx,
		cancel: cancel,
	}
	go c.receiveLoop()
	return c, nil
}

// receiveLoop reads envelopes from the websocket and delivers decoded
// events in arrival order. It owns the events channel and closes it
// when it exits.
func (c *Conn) receiveLoop() {
	defer c.closeEvents()

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.setErr(err)
			return
		}

		ev, err := wire.ParseServerEvent(data)
		if err != nil {
			if errors.Is(err, wire.ErrUnknownKind) {
				slog.Debug("ignoring unrecognized server event", "error", err)
				continue
			}
			// A malformed envelope becomes a synthetic protocol error
			// event so the consumer can surface it; the connection
			// itself survives.
			ev = wire.ServerEvent{
				Kind:         wire.KindError,
				ErrorCode:    "malformed_envelope",
				ErrorMessage: err.Error(),
			}
			c.deliver(ev)
			continue
		}

		if ev.Kind == wire.KindAudioDelta {
			pcm, decErr := decodeAudioDelta(ev.AudioB64)
			if decErr != nil {
				c.deliver(wire.ServerEvent{
					Kind:         wire.KindError,
					ErrorCode:    "malformed_envelope",
					ErrorMessage: decErr.Error(),
				})
				continue
			}
			if len(pcm) == 0 {
				continue
			}
			ev.AudioPCM = pcm
			ev.AudioB64 = ""
		}

		c.deliver(ev)
	}
}

func (c *Conn) deliver(ev wire.ServerEvent) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func decodeAudioDelta(b64 string) ([]float32, error) {
	if b64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("realtime: base64 audio: %w", err)
	}
	return audio.DecodePCM16(raw)
}

// writeJSON marshals v and writes it as a text WebSocket message.
func (c *Conn) writeJSON(v any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("realtime: connection closed")
	}
	c.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: marshal: %w", err)
	}
	return c.conn.Write(c.ctx, websocket.MessageText, data)
}

// ── Send helpers ───────────────────────────────────────────────────────────────

// SendSessionUpdate reconfigures the session. It is sent once after
// dial and again whenever instructions change.
func (c *Conn) SendSessionUpdate(params wire.SessionParams) error {
	return c.writeJSON(wire.NewSessionUpdate(params))
}

// AppendAudio transmits one chunk of float32 samples as base64 PCM16.
func (c *Conn) AppendAudio(samples []float32) error {
	encoded := base64.StdEncoding.EncodeToString(audio.EncodePCM16(samples))
	return c.writeJSON(wire.NewAppendAudio(encoded))
}

// CommitAudio finalizes the input audio buffer as one user turn.
func (c *Conn) CommitAudio() error {
	return c.writeJSON(wire.NewCommitAudio())
}

// SendUserText adds a user text message to the conversation.
func (c *Conn) SendUserText(text string) error {
	return c.writeJSON(wire.NewUserText(text))
}

// RequestResponse asks the model to produce the next assistant turn.
// A nil params uses the session defaults.
func (c *Conn) RequestResponse(params *wire.ResponseParams) error {
	return c.writeJSON(wire.NewResponseCreate(params))
}

// CancelResponse aborts the in-flight model response, if any.
func (c *Conn) CancelResponse() error {
	return c.writeJSON(wire.ResponseCancel{Type: "response.cancel"})
}

// ── Lifecycle ──────────────────────────────────────────────────────────────────

// Events returns the ordered stream of decoded server events. The
// channel is closed when the connection terminates.
func (c *Conn) Events() <-chan wire.ServerEvent { return c.events }

// Err returns the first transport error that terminated the receive
// loop, or nil after a clean Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errVal
}

func (c *Conn) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errVal == nil {
		c.errVal = err
	}
}

func (c *Conn) closeEvents() {
	c.closeOnce.Do(func() { close(c.events) })
}

// Close terminates the connection and releases all resources. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}
