package sqlstore

import (
	"github.com/goliatone/go-interactions/adapters/gojob"
	"github.com/goliatone/go-interactions/core"
)

var (
	_ core.DeliveryLedger           = (*DeliveryStore)(nil)
	_ core.DeliveryLedger           = (*CachedDeliveryStore)(nil)
	_ core.InteractionEventRecorder = (*EventLogStore)(nil)
	_ core.StoreProvider            = (*RepositoryFactory)(nil)
	_ gojob.Purger                  = (*DeliveryStore)(nil)
	_ gojob.Purger                  = (*CachedDeliveryStore)(nil)
	_ gojob.EventLogPruner          = (*EventLogStore)(nil)
)
