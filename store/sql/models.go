package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type interactionDeliveryRecord struct {
	bun.BaseModel `bun:"table:interaction_deliveries,alias:idl"`

	ID            string    `bun:"id,pk"`
	ClaimID       string    `bun:"claim_id,notnull"`
	InteractionID string    `bun:"interaction_id,notnull"`
	Status        string    `bun:"status,notnull"`
	Attempts      int       `bun:"attempts,notnull"`
	LastError     string    `bun:"last_error"`
	Payload       []byte    `bun:"payload"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type interactionEventRecord struct {
	bun.BaseModel `bun:"table:interaction_events,alias:iev"`

	ID            string         `bun:"id,pk"`
	InteractionID string         `bun:"interaction_id,notnull"`
	Kind          string         `bun:"kind,notnull"`
	Outcome       string         `bun:"outcome,notnull"`
	Error         string         `bun:"error"`
	Metadata      map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
