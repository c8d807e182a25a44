package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-interactions/core"
)

var (
	_ gocmd.Querier[GetDeliveryMessage, core.DeliveryRecord]               = (*GetDeliveryQuery)(nil)
	_ gocmd.Querier[ListInteractionEventsMessage, []core.InteractionEvent] = (*ListInteractionEventsQuery)(nil)
	_ gocmd.Querier[ListPendingInteractionsMessage, PendingSnapshot]       = (*ListPendingInteractionsQuery)(nil)

	_ DeliveryReader = (core.DeliveryLedger)(nil)
	_ PendingReader  = (*core.PendingRegistry)(nil)
)
