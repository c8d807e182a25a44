package query

import "strings"

const (
	TypeGetDelivery             = "interactions.query.delivery.get"
	TypeListInteractionEvents   = "interactions.query.events.list"
	TypeListPendingInteractions = "interactions.query.pending.list"
)

type GetDeliveryMessage struct {
	InteractionID string
}

func (GetDeliveryMessage) Type() string { return TypeGetDelivery }

func (m GetDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.InteractionID) == "" {
		return queryValidationError("interaction_id", "interaction id is required")
	}
	return nil
}

type ListInteractionEventsMessage struct {
	InteractionID string
}

func (ListInteractionEventsMessage) Type() string { return TypeListInteractionEvents }

func (m ListInteractionEventsMessage) Validate() error {
	if strings.TrimSpace(m.InteractionID) == "" {
		return queryValidationError("interaction_id", "interaction id is required")
	}
	return nil
}

type ListPendingInteractionsMessage struct{}

func (ListPendingInteractionsMessage) Type() string { return TypeListPendingInteractions }

func (ListPendingInteractionsMessage) Validate() error { return nil }
