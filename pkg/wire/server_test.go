package wire_test

import (
	"errors"
	"testing"

	"github.com/jmolenaar/hartstem/pkg/wire"
)

func TestParseServerEvent_TextDelta(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"response.text.delta","event_id":"ev_1","response_id":"resp_1","delta":"Goede"}`)
	ev, err := wire.ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent: %v", err)
	}
	if ev.Kind != wire.KindTextDelta {
		t.Errorf("Kind = %q; want %q", ev.Kind, wire.KindTextDelta)
	}
	if ev.Text != "Goede" {
		t.Errorf("Text = %q; want %q", ev.Text, "Goede")
	}
	if ev.ResponseID != "resp_1" {
		t.Errorf("ResponseID = %q; want %q", ev.ResponseID, "resp_1")
	}
}

func TestParseServerEvent_TextDone_UsesTextField(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"response.text.done","text":"Goedemorgen, hoe gaat het met u?"}`)
	ev, err := wire.ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent: %v", err)
	}
	if ev.Text != "Goedemorgen, hoe gaat het met u?" {
		t.Errorf("Text = %q", ev.Text)
	}
}

func TestParseServerEvent_AudioDelta_KeepsBase64(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"response.audio.delta","delta":"AAD/fw=="}`)
	ev, err := wire.ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent: %v", err)
	}
	if ev.AudioB64 != "AAD/fw==" {
		t.Errorf("AudioB64 = %q", ev.AudioB64)
	}
}

func TestParseServerEvent_ItemCreated(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"conversation.item.created","item":{"id":"item_7","role":"user"}}`)
	ev, err := wire.ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent: %v", err)
	}
	if ev.Kind != wire.KindItemCreated {
		t.Errorf("Kind = %q; want %q", ev.Kind, wire.KindItemCreated)
	}
	if ev.ItemID != "item_7" || ev.ItemRole != "user" {
		t.Errorf("item = (%q, %q); want (item_7, user)", ev.ItemID, ev.ItemRole)
	}
}

func TestParseServerEvent_Error(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"error","error":{"code":"invalid_request_error","message":"bad session"}}`)
	ev, err := wire.ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent: %v", err)
	}
	if ev.ErrorCode != "invalid_request_error" {
		t.Errorf("ErrorCode = %q", ev.ErrorCode)
	}
	if ev.ErrorMessage != "bad session" {
		t.Errorf("ErrorMessage = %q", ev.ErrorMessage)
	}
}

func TestParseServerEvent_ResponseIDFromResponseObject(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"response.done","response":{"id":"resp_9"}}`)
	ev, err := wire.ParseServerEvent(raw)
	if err != nil {
		t.Fatalf("ParseServerEvent: %v", err)
	}
	if ev.ResponseID != "resp_9" {
		t.Errorf("ResponseID = %q; want resp_9", ev.ResponseID)
	}
}

func TestParseServerEvent_UnknownKind(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"type":"rate_limits.updated"}`)
	_, err := wire.ParseServerEvent(raw)
	if !errors.Is(err, wire.ErrUnknownKind) {
		t.Fatalf("err = %v; want ErrUnknownKind", err)
	}
}

func TestParseServerEvent_Malformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`not json`, `{"event_id":"ev_1"}`} {
		_, err := wire.ParseServerEvent([]byte(raw))
		var envErr *wire.EnvelopeError
		if !errors.As(err, &envErr) {
			t.Errorf("ParseServerEvent(%q) err = %v; want *EnvelopeError", raw, err)
		}
	}
}

func TestParseServerEvent_MissingRequiredField(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{"type":"response.text.delta"}`,
		`{"type":"response.text.done"}`,
		`{"type":"response.audio.delta"}`,
		`{"type":"conversation.item.created"}`,
		`{"type":"error"}`,
	} {
		_, err := wire.ParseServerEvent([]byte(raw))
		var envErr *wire.EnvelopeError
		if !errors.As(err, &envErr) {
			t.Errorf("ParseServerEvent(%q) err = %v; want *EnvelopeError", raw, err)
		}
	}
}

func TestParseServerEvent_EmptyTextDoneIsValid(t *testing.T) {
	t.Parallel()

	ev, err := wire.ParseServerEvent([]byte(`{"type":"response.text.done","text":""}`))
	if err != nil {
		t.Fatalf("ParseServerEvent: %v", err)
	}
	if ev.Text != "" {
		t.Errorf("Text = %q; want empty", ev.Text)
	}
}
