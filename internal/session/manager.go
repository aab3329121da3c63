// Package session orchestrates one realtime anamnesis conversation: it
// owns the channel to the model, the interview tracker, the patient
// record and the transcript, and publishes everything the front-end
// needs on the event bus.
//
// All inbound server events flow through a single dispatch goroutine,
// so handlers observe them in arrival order and tracker/extractor
// updates from one event complete before the next is processed.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmolenaar/hartstem/internal/bus"
	"github.com/jmolenaar/hartstem/internal/config"
	"github.com/jmolenaar/hartstem/internal/extract"
	"github.com/jmolenaar/hartstem/internal/interview"
	"github.com/jmolenaar/hartstem/internal/observe"
	"github.com/jmolenaar/hartstem/pkg/audio"
	"github.com/jmolenaar/hartstem/pkg/wire"
)

// State is the engine's lifecycle state.
type State string

const (
	StateIdle             State = "idle"
	StateConnecting       State = "connecting"
	StateConnected        State = "connected"
	StateStreamingAudio   State = "streaming_audio"
	StateAwaitingResponse State = "awaiting_response"
	StateDisconnected     State = "disconnected"
	StateErrored          State = "errored"
)

// Conn is the subset of the realtime connection the manager drives.
// Satisfied by *realtime.Conn; mocked in tests.
type Conn interface {
	SendSessionUpdate(params wire.SessionParams) error
	AppendAudio(samples []float32) error
	CommitAudio() error
	SendUserText(text string) error
	RequestResponse(params *wire.ResponseParams) error
	Events() <-chan wire.ServerEvent
	Err() error
	Close() error
}

// Dialer opens the realtime channel. Injected so tests can substitute
// a mock connection.
type Dialer func(ctx context.Context, apiKey string) (Conn, error)

// Transcriber is the fallback speech-to-text path.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, language, prompt string) (string, error)
}

// Turn is one transcript entry.
type Turn struct {
	ID        string
	Role      string // "user" or "assistant"
	Text      string
	Timestamp time.Time
}

// Summary is a point-in-time snapshot of the conversation.
type Summary struct {
	SessionID      string
	StartedAt      time.Time
	State          State
	QuestionsAsked int
	Phase          interview.Phase
	PatientData    extract.PatientData
	Transcript     []Turn
}

// ManagerConfig holds all dependencies for a [Manager].
type ManagerConfig struct {
	Config      *config.Config
	Dial        Dialer
	Bus         *bus.Bus
	Tracker     *interview.Tracker
	Extractor   *extract.Extractor
	Capture     audio.CaptureDevice // may be nil
	Playback    audio.Playback      // may be nil
	Transcriber Transcriber         // may be nil
	Metrics     *observe.Metrics    // nil selects observe.DefaultMetrics
}

// Manager runs one anamnesis session at a time.
// All exported methods are safe for concurrent use.
type Manager struct {
	cfg         *config.Config
	dial        Dialer
	bus         *bus.Bus
	tracker     *interview.Tracker
	extractor   *extract.Extractor
	capture     audio.CaptureDevice
	playback    audio.Playback
	transcriber Transcriber
	metrics     *observe.Metrics

	mu            sync.Mutex
	state         State
	conn          Conn
	sessionID     string
	startedAt     time.Time
	transcript    []Turn
	captureStop   chan struct{}
	captureDone   chan struct{}
	watchdog      *time.Timer
	responseStart time.Time
	dispatchDone  chan struct{}
}

// NewManager creates a Manager with the given dependencies.
func NewManager(mc ManagerConfig) *Manager {
	metrics := mc.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Manager{
		cfg:         mc.Config,
		dial:        mc.Dial,
		bus:         mc.Bus,
		tracker:     mc.Tracker,
		extractor:   mc.Extractor,
		capture:     mc.Capture,
		playback:    mc.Playback,
		transcriber: mc.Transcriber,
		metrics:     metrics,
		state:       StateIdle,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect validates the credential, opens the realtime channel and
// configures the session. The credential is checked locally first: a
// value not starting with "sk-" fails with an AuthenticationError
// before any network traffic.
func (m *Manager) Connect(ctx context.Context, credential string) error {
	if !strings.HasPrefix(credential, "sk-") {
		err := &AuthenticationError{Reason: "credential must start with sk-"}
		m.publishError(ctx, err, ClassAuthentication)
		return err
	}

	m.mu.Lock()
	switch m.state {
	case StateConnected, StateStreamingAudio, StateAwaitingResponse:
		m.mu.Unlock()
		return fmt.Errorf("session: already connected (id=%s)", m.sessionID)
	case StateConnecting:
		m.mu.Unlock()
		return fmt.Errorf("session: connect already in progress")
	}
	m.state = StateConnecting
	m.mu.Unlock()

	conn, err := m.dial(ctx, credential)
	if err != nil {
		m.abortConnect()
		connErr := &ConnectionError{Err: err}
		m.publishError(ctx, connErr, ClassConnection)
		return connErr
	}

	if err := conn.SendSessionUpdate(m.sessionParams()); err != nil {
		_ = conn.Close()
		m.abortConnect()
		connErr := &ConnectionError{Err: fmt.Errorf("session update: %w", err)}
		m.publishError(ctx, connErr, ClassConnection)
		return connErr
	}
	m.metrics.RecordMessageOut(ctx, "session.update")

	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	m.sessionID = uuid.NewString()
	m.startedAt = time.Now().UTC()
	m.transcript = nil
	m.dispatchDone = make(chan struct{})
	done := m.dispatchDone
	m.mu.Unlock()

	m.metrics.ActiveSessions.Add(ctx, 1)
	go m.dispatchLoop(conn, done)

	slog.Info("session connected", "session_id", m.sessionID)
	m.bus.Publish(bus.Connected{})
	return nil
}

// abortConnect rolls a failed connect attempt back to idle.
func (m *Manager) abortConnect() {
	m.mu.Lock()
	if m.state == StateConnecting {
		m.state = StateIdle
	}
	m.mu.Unlock()
}

// sessionParams builds the session.update payload with freshly
// rendered instructions.
func (m *Manager) sessionParams() wire.SessionParams {
	rt := m.cfg.Realtime
	return wire.SessionParams{
		Modalities:        []string{"text", "audio"},
		Instructions:      m.freshInstructions(),
		Voice:             rt.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		InputAudioTranscription: &wire.Transcription{
			Model: m.cfg.Transcribe.Model,
		},
		TurnDetection: &wire.TurnDetection{
			Type:              "server_vad",
			Threshold:         rt.VADThreshold,
			PrefixPaddingMS:   rt.VADPrefixPaddingMS,
			SilenceDurationMS: rt.VADSilenceDurationMS,
		},
		Temperature:             rt.Temperature,
		MaxResponseOutputTokens: rt.MaxResponseOutputTokens,
	}
}

// freshInstructions renders the interview directive against the
// current tracker and patient record. Regenerated for every request
// because the backend holds no interview state of its own.
func (m *Manager) freshInstructions() string {
	data := m.extractor.Data()
	return m.tracker.BuildInstructions(&data)
}

// SendText sends one user text turn and requests the next assistant
// response.
func (m *Manager) SendText(ctx context.Context, text string) error {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		err := &NotConnectedError{Op: "send text"}
		m.publishError(ctx, err, ClassNotConnected)
		return err
	}
	conn := m.conn
	m.appendTurnLocked("user", text)
	m.mu.Unlock()

	if err := conn.SendUserText(text); err != nil {
		return fmt.Errorf("session: send text: %w", err)
	}
	m.metrics.RecordMessageOut(ctx, "conversation.item.create")

	if err := m.requestResponse(ctx, conn); err != nil {
		return err
	}
	return nil
}

// requestResponse asks for the next assistant turn with fresh
// instructions, arms the watchdog and moves to awaiting-response.
func (m *Manager) requestResponse(ctx context.Context, conn Conn) error {
	params := &wire.ResponseParams{
		Modalities:   []string{"text", "audio"},
		Instructions: m.freshInstructions(),
	}
	if err := conn.RequestResponse(params); err != nil {
		return fmt.Errorf("session: request response: %w", err)
	}
	m.metrics.RecordMessageOut(ctx, "response.create")

	m.mu.Lock()
	// Disconnect may have torn the session down while the write was in
	// flight; only a live session moves to awaiting-response.
	if m.conn == conn && m.state == StateConnected {
		m.state = StateAwaitingResponse
		m.responseStart = time.Now()
		m.armWatchdogLocked()
	}
	m.mu.Unlock()
	return nil
}

// armWatchdogLocked (re)starts the response watchdog. Caller holds mu.
func (m *Manager) armWatchdogLocked() {
	timeout := m.cfg.Session.ResponseTimeout
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
	if timeout <= 0 {
		return
	}
	m.watchdog = time.AfterFunc(timeout, func() { m.watchdogExpired(timeout) })
}

// watchdogExpired reports a response timeout. The channel stays open
// and the session returns to connected so the user can retry.
func (m *Manager) watchdogExpired(timeout time.Duration) {
	m.mu.Lock()
	if m.state != StateAwaitingResponse {
		m.mu.Unlock()
		return
	}
	m.state = StateConnected
	m.mu.Unlock()

	err := &TimeoutError{After: timeout}
	slog.Warn("response watchdog expired", "timeout", timeout)
	m.publishError(context.Background(), err, ClassTimeout)
}

// StartAudioCapture begins streaming microphone audio into the input
// buffer. The capture pump converts every frame to the canonical rate
// and forwards chunks in capture order.
func (m *Manager) StartAudioCapture(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		err := &NotConnectedError{Op: "start audio capture"}
		m.publishError(ctx, err, ClassNotConnected)
		return err
	}
	if m.capture == nil {
		m.mu.Unlock()
		err := &DeviceError{Err: fmt.Errorf("no capture device configured")}
		m.publishError(ctx, err, ClassDevice)
		return err
	}
	conn := m.conn
	m.mu.Unlock()

	frames, err := m.capture.Start(ctx)
	if err != nil {
		devErr := &DeviceError{Err: err}
		m.publishError(ctx, devErr, ClassDevice)
		return devErr
	}

	m.mu.Lock()
	// The session may have been torn down while the device was being
	// acquired; release it instead of streaming into a dead channel.
	if m.conn != conn || m.state != StateConnected {
		m.mu.Unlock()
		_ = m.capture.Stop()
		err := &NotConnectedError{Op: "start audio capture"}
		m.publishError(ctx, err, ClassNotConnected)
		return err
	}
	m.state = StateStreamingAudio
	m.captureStop = make(chan struct{})
	m.captureDone = make(chan struct{})
	stop, done := m.captureStop, m.captureDone
	m.mu.Unlock()

	m.bus.Publish(bus.RecordingStarted{})
	go m.capturePump(ctx, conn, frames, stop, done)
	return nil
}

// capturePump forwards captured frames until the device closes its
// channel or StopAudioCapture signals. A frame already taken from the
// channel is still forwarded after stop; nothing is read after it.
func (m *Manager) capturePump(ctx context.Context, conn Conn, frames <-chan audio.Frame, stop, done chan struct{}) {
	defer close(done)

	conv := audio.FrameConverter{TargetRate: audio.SampleRate}
	for {
		select {
		case <-stop:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			out := conv.Convert(frame)
			if err := conn.AppendAudio(out.Samples); err != nil {
				slog.Warn("append audio failed", "error", err)
				return
			}
			m.metrics.AudioChunksIn.Add(ctx, 1)
			m.metrics.RecordMessageOut(ctx, "input_audio_buffer.append")
		}
	}
}

// StopAudioCapture ends the microphone stream, commits the buffered
// audio as one user turn and requests the model's response.
func (m *Manager) StopAudioCapture(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateStreamingAudio {
		m.mu.Unlock()
		return nil
	}
	conn := m.conn
	stop, done := m.captureStop, m.captureDone
	m.captureStop, m.captureDone = nil, nil
	m.state = StateConnected
	m.mu.Unlock()

	close(stop)
	<-done
	if err := m.capture.Stop(); err != nil {
		slog.Warn("capture device stop failed", "error", err)
	}
	m.bus.Publish(bus.RecordingStopped{})

	if err := conn.CommitAudio(); err != nil {
		return fmt.Errorf("session: commit audio: %w", err)
	}
	m.metrics.RecordMessageOut(ctx, "input_audio_buffer.commit")

	return m.requestResponse(ctx, conn)
}

// TranscribeAndSend converts a recorded blob to text through the
// fallback transcriber, then sends it as a user text turn.
func (m *Manager) TranscribeAndSend(ctx context.Context, samples []float32) (string, error) {
	if m.transcriber == nil {
		return "", fmt.Errorf("session: no transcriber configured")
	}

	text, err := m.transcriber.Transcribe(ctx, samples, m.cfg.Transcribe.Language, m.cfg.Transcribe.Prompt)
	if err != nil {
		trErr := &TranscriptionError{Err: err}
		m.publishError(ctx, trErr, ClassTranscription)
		return "", trErr
	}

	if err := m.SendText(ctx, text); err != nil {
		return "", err
	}
	return text, nil
}

// Disconnect tears down the channel and audio. Idempotent.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateConnecting || m.state == StateDisconnected || m.state == StateErrored {
		// An errored session already tore the channel down.
		m.mu.Unlock()
		return nil
	}
	conn := m.conn
	stop, done := m.captureStop, m.captureDone
	m.captureStop, m.captureDone = nil, nil
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
	wasStreaming := m.state == StateStreamingAudio
	m.state = StateDisconnected
	m.conn = nil
	dispatchDone := m.dispatchDone
	sessionID := m.sessionID
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
		if m.capture != nil {
			_ = m.capture.Stop()
		}
		if wasStreaming {
			m.bus.Publish(bus.RecordingStopped{})
		}
	}

	if conn != nil {
		_ = conn.Close()
	}
	if dispatchDone != nil {
		<-dispatchDone
	}

	m.metrics.ActiveSessions.Add(context.Background(), -1)
	slog.Info("session disconnected", "session_id", sessionID)
	m.bus.Publish(bus.Disconnected{})
	return nil
}

// Summary returns a snapshot of the conversation so far.
func (m *Manager) Summary() Summary {
	m.mu.Lock()
	transcript := make([]Turn, len(m.transcript))
	copy(transcript, m.transcript)
	s := Summary{
		SessionID:  m.sessionID,
		StartedAt:  m.startedAt,
		State:      m.state,
		Transcript: transcript,
	}
	m.mu.Unlock()

	s.QuestionsAsked = m.tracker.AskedCount()
	s.Phase = m.tracker.CurrentPhase()
	s.PatientData = m.extractor.Data()
	return s
}

// ── Inbound dispatch ───────────────────────────────────────────────────────────

// dispatchLoop consumes the connection's event stream until it closes.
func (m *Manager) dispatchLoop(conn Conn, done chan struct{}) {
	defer close(done)

	for ev := range conn.Events() {
		m.handleEvent(ev)
	}

	// Channel closed: clean shutdown via Disconnect leaves Err nil.
	if err := conn.Err(); err != nil {
		m.mu.Lock()
		alreadyDown := m.state == StateDisconnected
		if !alreadyDown {
			m.state = StateErrored
			m.conn = nil
		}
		m.mu.Unlock()
		if !alreadyDown {
			m.publishError(context.Background(), &ConnectionError{Err: err}, ClassConnection)
			m.metrics.ActiveSessions.Add(context.Background(), -1)
			m.bus.Publish(bus.Disconnected{})
		}
	}
}

func (m *Manager) handleEvent(ev wire.ServerEvent) {
	ctx := context.Background()
	m.metrics.RecordMessageIn(ctx, string(ev.Kind))

	switch ev.Kind {
	case wire.KindSessionCreated, wire.KindSessionUpdated:
		slog.Debug("session event", "kind", ev.Kind, "event_id", ev.EventID)

	case wire.KindTextDelta:
		m.bus.Publish(bus.TextDelta{Text: ev.Text})

	case wire.KindTextDone:
		m.handleAssistantTurn(ctx, ev.Text)

	case wire.KindAudioDelta:
		m.metrics.AudioChunksOut.Add(ctx, 1)
		if m.playback != nil {
			if err := m.playback.Play(ev.AudioPCM); err != nil {
				slog.Warn("playback failed", "error", err)
			}
		}
		m.bus.Publish(bus.AudioChunk{Samples: ev.AudioPCM})

	case wire.KindAudioDone:
		slog.Debug("assistant audio complete", "response_id", ev.ResponseID)

	case wire.KindResponseDone:
		m.handleResponseDone(ctx)

	case wire.KindSpeechStarted:
		m.bus.Publish(bus.UserSpeaking{Speaking: true})

	case wire.KindSpeechStopped:
		m.bus.Publish(bus.UserSpeaking{Speaking: false})

	case wire.KindCommitted:
		slog.Debug("input audio committed", "event_id", ev.EventID)

	case wire.KindError:
		perr := &ProtocolError{Code: ev.ErrorCode, Message: ev.ErrorMessage}
		slog.Warn("protocol error event", "code", ev.ErrorCode, "message", ev.ErrorMessage)
		m.publishError(ctx, perr, ClassProtocol)
	}
}

// handleAssistantTurn records a finished assistant text turn: it joins
// the transcript, counts as an asked question, and feeds the extractor.
// Every assistant turn is recorded as a question, statements included.
func (m *Manager) handleAssistantTurn(ctx context.Context, text string) {
	if text == "" {
		return
	}

	m.mu.Lock()
	m.appendTurnLocked("assistant", text)
	m.mu.Unlock()

	if m.tracker.RecordAsked(text) {
		m.metrics.RecordQuestionAsked(ctx, string(m.tracker.CurrentPhase()))
	}
	for _, bucket := range m.extractor.Extract(text) {
		m.metrics.RecordExtractionHit(ctx, bucket)
	}

	m.bus.Publish(bus.TextComplete{Text: text})
}

func (m *Manager) handleResponseDone(ctx context.Context) {
	m.mu.Lock()
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
	if !m.responseStart.IsZero() {
		m.metrics.ResponseLatency.Record(ctx, time.Since(m.responseStart).Seconds())
		m.responseStart = time.Time{}
	}
	if m.state == StateAwaitingResponse {
		m.state = StateConnected
	}
	m.mu.Unlock()

	m.bus.Publish(bus.ResponseComplete{})
}

// appendTurnLocked adds one transcript entry. Caller holds mu.
func (m *Manager) appendTurnLocked(role, text string) {
	m.transcript = append(m.transcript, Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// publishError records the error metric and publishes the error with
// its localized human message.
func (m *Manager) publishError(ctx context.Context, err error, class string) {
	m.metrics.RecordEngineError(ctx, class)
	m.bus.Publish(bus.Error{Err: err, Message: m.humanMessage(class)})
}

// humanMessage looks up the localized text for an error class.
func (m *Manager) humanMessage(class string) string {
	msgs := m.cfg.Messages
	switch class {
	case ClassAuthentication:
		return msgs.Authentication
	case ClassConnection:
		return msgs.Connection
	case ClassNotConnected:
		return msgs.NotConnected
	case ClassDevice:
		return msgs.Device
	case ClassProtocol:
		return msgs.Protocol
	case ClassTimeout:
		return msgs.Timeout
	case ClassTranscription:
		return msgs.Transcription
	}
	return ""
}
