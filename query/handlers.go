package query

import (
	"context"

	"github.com/goliatone/go-interactions/core"
)

type DeliveryReader interface {
	Get(ctx context.Context, interactionID string) (core.DeliveryRecord, error)
}

type EventReader interface {
	ListByInteraction(ctx context.Context, interactionID string) ([]core.InteractionEvent, error)
}

type PendingReader interface {
	IDs() []string
	Len() int
}

type GetDeliveryQuery struct {
	reader DeliveryReader
}

func NewGetDeliveryQuery(reader DeliveryReader) *GetDeliveryQuery {
	return &GetDeliveryQuery{reader: reader}
}

func (q *GetDeliveryQuery) Query(ctx context.Context, msg GetDeliveryMessage) (core.DeliveryRecord, error) {
	if q == nil || q.reader == nil {
		return core.DeliveryRecord{}, queryDependencyError("query: delivery reader is required")
	}
	return q.reader.Get(ctx, msg.InteractionID)
}

type ListInteractionEventsQuery struct {
	reader EventReader
}

func NewListInteractionEventsQuery(reader EventReader) *ListInteractionEventsQuery {
	return &ListInteractionEventsQuery{reader: reader}
}

func (q *ListInteractionEventsQuery) Query(
	ctx context.Context,
	msg ListInteractionEventsMessage,
) ([]core.InteractionEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: event reader is required")
	}
	return q.reader.ListByInteraction(ctx, msg.InteractionID)
}

// PendingSnapshot is a point-in-time view of the in-memory registry; ids may
// already be resolved by the time the caller acts on them.
type PendingSnapshot struct {
	IDs   []string
	Count int
}

type ListPendingInteractionsQuery struct {
	reader PendingReader
}

func NewListPendingInteractionsQuery(reader PendingReader) *ListPendingInteractionsQuery {
	return &ListPendingInteractionsQuery{reader: reader}
}

func (q *ListPendingInteractionsQuery) Query(
	_ context.Context,
	_ ListPendingInteractionsMessage,
) (PendingSnapshot, error) {
	if q == nil || q.reader == nil {
		return PendingSnapshot{}, queryDependencyError("query: pending reader is required")
	}
	return PendingSnapshot{IDs: q.reader.IDs(), Count: q.reader.Len()}, nil
}
