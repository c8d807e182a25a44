package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TypeInteractionReceived = "interactions.command.received"
	TypeResolveInteraction  = "interactions.command.resolve"
	TypeExpireInteraction   = "interactions.command.expire"
	TypeSendFollowup        = "interactions.command.followup.send"
	TypeEditOriginal        = "interactions.command.original.edit"
	TypeDeleteOriginal      = "interactions.command.original.delete"
)

// InteractionReceivedMessage fans an authenticated callback out to bus
// subscribers. Subscribers answer by dispatching ResolveInteractionMessage
// with the same interaction id before the acknowledgement window closes.
type InteractionReceivedMessage struct {
	InteractionID string
	Kind          string
	Token         string
	Payload       json.RawMessage
}

func (InteractionReceivedMessage) Type() string { return TypeInteractionReceived }

func (m InteractionReceivedMessage) Validate() error {
	if strings.TrimSpace(m.InteractionID) == "" {
		return fmt.Errorf("command: interaction id is required")
	}
	if strings.TrimSpace(m.Kind) == "" {
		return fmt.Errorf("command: interaction kind is required")
	}
	return nil
}

type ResolveInteractionMessage struct {
	InteractionID string
	Response      json.RawMessage
}

func (ResolveInteractionMessage) Type() string { return TypeResolveInteraction }

func (m ResolveInteractionMessage) Validate() error {
	if strings.TrimSpace(m.InteractionID) == "" {
		return fmt.Errorf("command: interaction id is required")
	}
	if len(m.Response) == 0 {
		return fmt.Errorf("command: response payload is required")
	}
	return nil
}

type ExpireInteractionMessage struct {
	InteractionID string
	Reason        string
}

func (ExpireInteractionMessage) Type() string { return TypeExpireInteraction }

func (m ExpireInteractionMessage) Validate() error {
	if strings.TrimSpace(m.InteractionID) == "" {
		return fmt.Errorf("command: interaction id is required")
	}
	return nil
}

// SendFollowupMessage posts a follow-up message on an interaction token after
// the initial (possibly deferred) acknowledgement.
type SendFollowupMessage struct {
	ApplicationID string
	Token         string
	Payload       json.RawMessage
}

func (SendFollowupMessage) Type() string { return TypeSendFollowup }

func (m SendFollowupMessage) Validate() error {
	if strings.TrimSpace(m.ApplicationID) == "" {
		return fmt.Errorf("command: application id is required")
	}
	if strings.TrimSpace(m.Token) == "" {
		return fmt.Errorf("command: interaction token is required")
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("command: followup payload is required")
	}
	return nil
}

type EditOriginalMessage struct {
	ApplicationID string
	Token         string
	Payload       json.RawMessage
}

func (EditOriginalMessage) Type() string { return TypeEditOriginal }

func (m EditOriginalMessage) Validate() error {
	if strings.TrimSpace(m.ApplicationID) == "" {
		return fmt.Errorf("command: application id is required")
	}
	if strings.TrimSpace(m.Token) == "" {
		return fmt.Errorf("command: interaction token is required")
	}
	if len(m.Payload) == 0 {
		return fmt.Errorf("command: edit payload is required")
	}
	return nil
}

type DeleteOriginalMessage struct {
	ApplicationID string
	Token         string
}

func (DeleteOriginalMessage) Type() string { return TypeDeleteOriginal }

func (m DeleteOriginalMessage) Validate() error {
	if strings.TrimSpace(m.ApplicationID) == "" {
		return fmt.Errorf("command: application id is required")
	}
	if strings.TrimSpace(m.Token) == "" {
		return fmt.Errorf("command: interaction token is required")
	}
	return nil
}
