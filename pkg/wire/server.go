package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind enumerates the server events the engine reacts to. Events
// outside this set parse to ErrUnknownKind and are skipped by callers.
type EventKind string

const (
	KindSessionCreated EventKind = "session.created"
	KindSessionUpdated EventKind = "session.updated"
	KindItemCreated    EventKind = "conversation.item.created"
	KindTextDelta      EventKind = "response.text.delta"
	KindTextDone       EventKind = "response.text.done"
	KindAudioDelta     EventKind = "response.audio.delta"
	KindAudioDone      EventKind = "response.audio.done"
	KindResponseDone   EventKind = "response.done"
	KindSpeechStarted  EventKind = "input_audio_buffer.speech_started"
	KindSpeechStopped  EventKind = "input_audio_buffer.speech_stopped"
	KindCommitted      EventKind = "input_audio_buffer.committed"
	KindError          EventKind = "error"
)

// ErrUnknownKind reports a syntactically valid envelope whose type is
// not part of the handled event set.
var ErrUnknownKind = errors.New("wire: unknown event kind")

// EnvelopeError reports an envelope that could not be decoded at all.
type EnvelopeError struct {
	Err error
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("wire: malformed server envelope: %v", e.Err)
}

func (e *EnvelopeError) Unwrap() error { return e.Err }

// ServerEvent is the decoded form of one inbound envelope. Only the
// fields relevant to the event's kind are populated.
type ServerEvent struct {
	Kind    EventKind
	EventID string

	// Text carries the delta for response.text.delta and the full
	// assistant turn for response.text.done.
	Text string

	// AudioB64 is the base64 payload of response.audio.delta. The
	// transport layer decodes it into AudioPCM before delivery.
	AudioB64 string
	AudioPCM []float32

	// ResponseID identifies the response a delta belongs to.
	ResponseID string

	// ItemID and ItemRole are set for conversation.item.created.
	ItemID   string
	ItemRole string

	// ErrorCode and ErrorMessage are set for error events.
	ErrorCode    string
	ErrorMessage string
}

type serverEnvelope struct {
	Type       string  `json:"type"`
	EventID    string  `json:"event_id"`
	Delta      *string `json:"delta"`
	Text       *string `json:"text"`
	ResponseID string  `json:"response_id"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response *struct {
		ID string `json:"id"`
	} `json:"response"`
	Item *struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"item"`
}

// ParseServerEvent decodes one raw server envelope. It returns
// ErrUnknownKind for event types outside the handled set and an
// *EnvelopeError when the payload is not a valid envelope at all.
func ParseServerEvent(raw []byte) (ServerEvent, error) {
	var env serverEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ServerEvent{}, &EnvelopeError{Err: err}
	}
	if env.Type == "" {
		return ServerEvent{}, &EnvelopeError{Err: errors.New("missing type field")}
	}

	ev := ServerEvent{
		Kind:       EventKind(env.Type),
		EventID:    env.EventID,
		ResponseID: env.ResponseID,
	}
	if env.Response != nil && ev.ResponseID == "" {
		ev.ResponseID = env.Response.ID
	}

	switch ev.Kind {
	case KindSessionCreated, KindSessionUpdated, KindResponseDone,
		KindSpeechStarted, KindSpeechStopped, KindCommitted, KindAudioDone:
		// Envelope fields above are all these carry.
	case KindTextDelta:
		if env.Delta == nil {
			return ServerEvent{}, missingField(ev.Kind, "delta")
		}
		ev.Text = *env.Delta
	case KindTextDone:
		if env.Text == nil {
			return ServerEvent{}, missingField(ev.Kind, "text")
		}
		ev.Text = *env.Text
	case KindAudioDelta:
		if env.Delta == nil {
			return ServerEvent{}, missingField(ev.Kind, "delta")
		}
		ev.AudioB64 = *env.Delta
	case KindItemCreated:
		if env.Item == nil {
			return ServerEvent{}, missingField(ev.Kind, "item")
		}
		ev.ItemID = env.Item.ID
		ev.ItemRole = env.Item.Role
	case KindError:
		if env.Error == nil {
			return ServerEvent{}, missingField(ev.Kind, "error")
		}
		ev.ErrorCode = env.Error.Code
		ev.ErrorMessage = env.Error.Message
	default:
		return ServerEvent{}, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	return ev, nil
}

func missingField(kind EventKind, field string) *EnvelopeError {
	return &EnvelopeError{Err: fmt.Errorf("%s: missing %s field", kind, field)}
}
