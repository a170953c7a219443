package sessionbus

import "testing"

func TestDecodeActionValid(t *testing.T) {
	b := New()
	pos := 3
	data := []byte(`{"type":"selectCard","position":3}`)
	_ = pos

	a, err := b.DecodeAction(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Type != "selectCard" || a.Position == nil || *a.Position != 3 {
		t.Fatalf("unexpected decoded action: %+v", a)
	}
}

func TestDecodeActionRejectsUnknownType(t *testing.T) {
	b := New()
	_, err := b.DecodeAction([]byte(`{"type":"teleport"}`))
	if err == nil {
		t.Fatal("expected validation error for unknown action type")
	}
}

func TestDecodeActionRejectsMalformedJSON(t *testing.T) {
	b := New()
	_, err := b.DecodeAction([]byte(`not json`))
	if err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestEncodeEventProducesNonEmptyJSON(t *testing.T) {
	payload := TurnChangedPayload{CurrentPlayerID: "u1"}
	data, err := EncodeEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty encoded event")
	}
}
