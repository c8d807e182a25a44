package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-interactions/core"
)

func TestInMemoryDeliveryLedger_ClaimOnce(t *testing.T) {
	ledger := NewInMemoryDeliveryLedger()
	record, claimed, err := ledger.Claim(context.Background(), "int-1", []byte(`{"type":2}`))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first claim to win")
	}
	if record.Status != core.DeliveryStatusProcessing {
		t.Fatalf("expected processing status, got %s", record.Status)
	}
	if record.Attempts != 1 {
		t.Fatalf("expected single attempt, got %d", record.Attempts)
	}

	_, claimed, err = ledger.Claim(context.Background(), "int-1", nil)
	if err != nil {
		t.Fatalf("duplicate claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected duplicate claim to be rejected")
	}
}

func TestInMemoryDeliveryLedger_CompleteBlocksRedelivery(t *testing.T) {
	ledger := NewInMemoryDeliveryLedger()
	record, _, err := ledger.Claim(context.Background(), "int-2", nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ledger.Complete(context.Background(), record.ClaimID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	stored, err := ledger.Get(context.Background(), "int-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != core.DeliveryStatusProcessed {
		t.Fatalf("expected processed, got %s", stored.Status)
	}

	_, claimed, err := ledger.Claim(context.Background(), "int-2", nil)
	if err != nil {
		t.Fatalf("post-complete claim: %v", err)
	}
	if claimed {
		t.Fatalf("processed delivery must stay deduped")
	}
}

func TestInMemoryDeliveryLedger_FailReleasesForRetry(t *testing.T) {
	ledger := NewInMemoryDeliveryLedger()
	record, _, err := ledger.Claim(context.Background(), "int-3", nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ledger.Fail(context.Background(), record.ClaimID, errors.New("handler timed out")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	retry, claimed, err := ledger.Claim(context.Background(), "int-3", nil)
	if err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected failed delivery to be reclaimable")
	}
	if retry.Attempts != 2 {
		t.Fatalf("expected second attempt, got %d", retry.Attempts)
	}
	if retry.ClaimID == record.ClaimID {
		t.Fatalf("expected a fresh claim id on retry")
	}
}

func TestInMemoryDeliveryLedger_StaleClaimIDIsNoop(t *testing.T) {
	ledger := NewInMemoryDeliveryLedger()
	if err := ledger.Complete(context.Background(), "claim-missing"); err != nil {
		t.Fatalf("complete of unknown claim must be a no-op: %v", err)
	}
	if err := ledger.Fail(context.Background(), "claim-missing", errors.New("x")); err != nil {
		t.Fatalf("fail of unknown claim must be a no-op: %v", err)
	}
}

func TestInMemoryDeliveryLedger_EvictsProcessedAfterRetention(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	ledger := NewInMemoryDeliveryLedger()
	ledger.Retention = time.Minute
	ledger.Now = func() time.Time { return now }

	record, _, err := ledger.Claim(context.Background(), "int-4", nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ledger.Complete(context.Background(), record.ClaimID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	now = now.Add(2 * time.Minute)
	_, claimed, err := ledger.Claim(context.Background(), "int-4", nil)
	if err != nil {
		t.Fatalf("post-retention claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected evicted delivery to be claimable again")
	}
}

func TestInMemoryDeliveryLedger_RequiresInteractionID(t *testing.T) {
	ledger := NewInMemoryDeliveryLedger()
	if _, _, err := ledger.Claim(context.Background(), "  ", nil); err == nil {
		t.Fatalf("expected blank interaction id to be rejected")
	}
}
