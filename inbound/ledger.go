package inbound

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
	"github.com/google/uuid"
)

const defaultLedgerRetention = 15 * time.Minute

// InMemoryDeliveryLedger dedupes redelivered callbacks without external
// storage. An interaction id stays claimed while its first delivery is in
// flight or has been processed; a failed delivery releases the id so the
// platform's retry can claim it again. Processed entries age out after the
// retention window.
type InMemoryDeliveryLedger struct {
	Retention time.Duration
	Now       func() time.Time

	mu      sync.Mutex
	entries map[string]core.DeliveryRecord
	claims  map[string]string
}

func NewInMemoryDeliveryLedger() *InMemoryDeliveryLedger {
	return &InMemoryDeliveryLedger{
		entries: map[string]core.DeliveryRecord{},
		claims:  map[string]string{},
	}
}

func (l *InMemoryDeliveryLedger) Claim(_ context.Context, interactionID string, _ []byte) (core.DeliveryRecord, bool, error) {
	if l == nil {
		return core.DeliveryRecord{}, false, inboundInternal("inbound: delivery ledger is nil", nil)
	}
	interactionID = strings.TrimSpace(interactionID)
	if interactionID == "" {
		return core.DeliveryRecord{}, false, inboundBadInput("inbound: interaction id is required", nil)
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictExpiredLocked(now)

	entry, exists := l.entries[interactionID]
	if exists {
		switch entry.Status {
		case core.DeliveryStatusProcessing, core.DeliveryStatusProcessed:
			return entry, false, nil
		case core.DeliveryStatusFailed:
			// A failed attempt releases the id for the platform's retry.
		default:
			return entry, false, nil
		}
		if entry.ClaimID != "" {
			delete(l.claims, entry.ClaimID)
		}
	}

	claimID := uuid.NewString()
	record := core.DeliveryRecord{
		ID:            entry.ID,
		ClaimID:       claimID,
		InteractionID: interactionID,
		Status:        core.DeliveryStatusProcessing,
		Attempts:      entry.Attempts + 1,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     now,
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	l.entries[interactionID] = record
	l.claims[claimID] = interactionID
	return record, true, nil
}

func (l *InMemoryDeliveryLedger) Get(_ context.Context, interactionID string) (core.DeliveryRecord, error) {
	if l == nil {
		return core.DeliveryRecord{}, inboundInternal("inbound: delivery ledger is nil", nil)
	}
	interactionID = strings.TrimSpace(interactionID)
	l.mu.Lock()
	entry, exists := l.entries[interactionID]
	l.mu.Unlock()
	if !exists {
		return core.DeliveryRecord{}, inboundError(
			"inbound: delivery record not found",
			goerrors.CategoryNotFound,
			http.StatusNotFound,
			core.ErrorNotFound,
			map[string]any{"interaction_id": interactionID},
		)
	}
	return entry, nil
}

func (l *InMemoryDeliveryLedger) Complete(_ context.Context, claimID string) error {
	return l.transition(claimID, core.DeliveryStatusProcessed)
}

func (l *InMemoryDeliveryLedger) Fail(_ context.Context, claimID string, _ error) error {
	return l.transition(claimID, core.DeliveryStatusFailed)
}

func (l *InMemoryDeliveryLedger) transition(claimID, status string) error {
	if l == nil {
		return inboundInternal("inbound: delivery ledger is nil", nil)
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return inboundBadInput("inbound: claim id is required", nil)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	interactionID, ok := l.claims[claimID]
	if !ok {
		return nil
	}
	entry, exists := l.entries[interactionID]
	if !exists || entry.ClaimID != claimID || entry.Status != core.DeliveryStatusProcessing {
		delete(l.claims, claimID)
		return nil
	}
	entry.Status = status
	entry.UpdatedAt = l.now()
	l.entries[interactionID] = entry
	delete(l.claims, claimID)
	return nil
}

func (l *InMemoryDeliveryLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *InMemoryDeliveryLedger) retention() time.Duration {
	if l != nil && l.Retention > 0 {
		return l.Retention
	}
	return defaultLedgerRetention
}

func (l *InMemoryDeliveryLedger) evictExpiredLocked(now time.Time) {
	cutoff := now.Add(-l.retention())
	for interactionID, entry := range l.entries {
		if entry.Status != core.DeliveryStatusProcessed {
			continue
		}
		if entry.UpdatedAt.Before(cutoff) {
			if entry.ClaimID != "" {
				delete(l.claims, entry.ClaimID)
			}
			delete(l.entries, interactionID)
		}
	}
}

var _ core.DeliveryLedger = (*InMemoryDeliveryLedger)(nil)
