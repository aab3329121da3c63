// Package wire defines the JSON envelope types exchanged with the
// OpenAI Realtime API over a websocket. Client events are marshalled
// as-is; server events pass through ParseServerEvent, which maps the
// open-ended upstream event set onto a closed kind enum.
package wire

// SessionUpdate configures the realtime session. It is sent once right
// after the websocket opens and again whenever the interview
// instructions change.
type SessionUpdate struct {
	Type    string        `json:"type"` // "session.update"
	Session SessionParams `json:"session"`
}

// SessionParams mirrors the session object of the session.update event.
type SessionParams struct {
	Modalities              []string       `json:"modalities,omitempty"`
	Instructions            string         `json:"instructions,omitempty"`
	Voice                   string         `json:"voice,omitempty"`
	InputAudioFormat        string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string         `json:"output_audio_format,omitempty"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection,omitempty"`
	Temperature             float64        `json:"temperature,omitempty"`
	MaxResponseOutputTokens int            `json:"max_response_output_tokens,omitempty"`
}

// Transcription enables server-side transcription of input audio.
type Transcription struct {
	Model string `json:"model"`
}

// TurnDetection configures server-side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"` // "server_vad"
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMS int     `json:"silence_duration_ms,omitempty"`
}

// AppendAudio carries one base64-encoded PCM16 chunk into the input
// audio buffer.
type AppendAudio struct {
	Type  string `json:"type"` // "input_audio_buffer.append"
	Audio string `json:"audio"`
}

// CommitAudio closes the current input audio buffer so the server
// treats the buffered audio as a finished user turn.
type CommitAudio struct {
	Type string `json:"type"` // "input_audio_buffer.commit"
}

// CreateUserText adds a text message to the conversation as the user.
type CreateUserText struct {
	Type string           `json:"type"` // "conversation.item.create"
	Item ConversationItem `json:"item"`
}

// ConversationItem is the item payload of conversation.item.create.
type ConversationItem struct {
	Type    string        `json:"type"` // "message"
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one typed fragment of a conversation item.
type ContentPart struct {
	Type string `json:"type"` // "input_text"
	Text string `json:"text"`
}

// ResponseCreate asks the server to generate the next assistant turn.
type ResponseCreate struct {
	Type     string          `json:"type"` // "response.create"
	Response *ResponseParams `json:"response,omitempty"`
}

// ResponseParams overrides session defaults for a single response.
type ResponseParams struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// ResponseCancel aborts the in-flight response, if any.
type ResponseCancel struct {
	Type string `json:"type"` // "response.cancel"
}

// NewSessionUpdate builds a session.update envelope around params.
func NewSessionUpdate(params SessionParams) SessionUpdate {
	return SessionUpdate{Type: "session.update", Session: params}
}

// NewAppendAudio builds an input_audio_buffer.append envelope around
// already-base64-encoded audio.
func NewAppendAudio(b64 string) AppendAudio {
	return AppendAudio{Type: "input_audio_buffer.append", Audio: b64}
}

// NewCommitAudio builds an input_audio_buffer.commit envelope.
func NewCommitAudio() CommitAudio {
	return CommitAudio{Type: "input_audio_buffer.commit"}
}

// NewUserText builds a conversation.item.create envelope carrying a
// single input_text part from the user role.
func NewUserText(text string) CreateUserText {
	return CreateUserText{
		Type: "conversation.item.create",
		Item: ConversationItem{
			Type: "message",
			Role: "user",
			Content: []ContentPart{
				{Type: "input_text", Text: text},
			},
		},
	}
}

// NewResponseCreate builds a response.create envelope. A nil params
// requests a response with the session defaults.
func NewResponseCreate(params *ResponseParams) ResponseCreate {
	return ResponseCreate{Type: "response.create", Response: params}
}
