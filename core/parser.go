package core

import (
	"encoding/json"
	"strings"
)

type interactionEnvelope struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	Token         string `json:"token"`
	Type          int    `json:"type"`
}

// ParseInteraction deserializes a raw callback body into an Interaction.
// The body must already be signature-verified: parsing never re-encodes and
// the raw bytes are retained on the interaction as the opaque payload.
func ParseInteraction(body []byte) (*Interaction, error) {
	if len(body) == 0 {
		return nil, parseError("core: interaction body is empty", nil)
	}
	var envelope interactionEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, wrapParseError(err, "core: decode interaction body")
	}
	if envelope.Type <= 0 {
		return nil, parseError("core: interaction type is required", map[string]any{
			"interaction_id": envelope.ID,
		})
	}
	kind := InteractionKind(envelope.Type)
	if kind != KindPing && strings.TrimSpace(envelope.ID) == "" {
		return nil, parseError("core: interaction id is required", map[string]any{
			"kind": kind.String(),
		})
	}

	interaction := NewInteraction(envelope.ID, kind, body)
	interaction.ApplicationID = strings.TrimSpace(envelope.ApplicationID)
	interaction.Token = strings.TrimSpace(envelope.Token)
	return interaction, nil
}
