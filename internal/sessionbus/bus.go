package sessionbus

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Bus decodes and validates inbound Action payloads and encodes outbound
// Event payloads. One Bus is shared process-wide; it holds no per-room
// state, so it is safe for concurrent use by every room worker.
type Bus struct {
	validate *validator.Validate
}

// New builds a Bus with the struct-tag validator wired in (spec §4.3
// "applies per-event input schema validation").
func New() *Bus {
	return &Bus{validate: validator.New()}
}

// DecodeAction unmarshals and validates an inbound message payload. A
// malformed or schema-invalid payload surfaces as the spec §7 Validation
// failure: no state change, caller emits ErrorPayload.
func (b *Bus) DecodeAction(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, fmt.Errorf("unmarshal action: %w", err)
	}
	if err := b.validate.Struct(a); err != nil {
		return Action{}, fmt.Errorf("validate action: %w", err)
	}
	return a, nil
}

// EncodeEvent marshals an outbound event's payload for transmission over
// the match's OpCode channel.
func EncodeEvent(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
