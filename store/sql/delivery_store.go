package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeliveryStore is the durable delivery ledger. A unique index on
// interaction_id makes the first insert win; every redelivery of the same
// interaction surfaces as a unique violation and resolves to the existing row.
type DeliveryStore struct {
	db   *bun.DB
	repo repository.Repository[*interactionDeliveryRecord]
}

func NewDeliveryStore(db *bun.DB) (*DeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*interactionDeliveryRecord](db, deliveryHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery repository wiring: %w", err)
		}
	}
	return &DeliveryStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *DeliveryStore) Claim(
	ctx context.Context,
	interactionID string,
	payload []byte,
) (core.DeliveryRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.DeliveryRecord{}, false, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	interactionID = strings.TrimSpace(interactionID)
	if interactionID == "" {
		return core.DeliveryRecord{}, false, fmt.Errorf("sqlstore: interaction id is required")
	}

	now := time.Now().UTC()
	record := &interactionDeliveryRecord{
		ID:            uuid.NewString(),
		ClaimID:       uuid.NewString(),
		InteractionID: interactionID,
		Status:        core.DeliveryStatusProcessing,
		Attempts:      1,
		Payload:       append([]byte(nil), payload...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return s.resolveExisting(ctx, interactionID)
		}
		return core.DeliveryRecord{}, false, err
	}
	return deliveryToDomain(record), true, nil
}

// resolveExisting decides what a redelivery gets: failed rows are released
// back for retry under a fresh claim id, anything else is a duplicate.
func (s *DeliveryStore) resolveExisting(
	ctx context.Context,
	interactionID string,
) (core.DeliveryRecord, bool, error) {
	existing, err := s.Get(ctx, interactionID)
	if err != nil {
		return core.DeliveryRecord{}, false, err
	}
	if existing.Status != core.DeliveryStatusFailed {
		return existing, false, nil
	}

	claimID := uuid.NewString()
	now := time.Now().UTC()
	result, err := s.db.NewUpdate().
		Model((*interactionDeliveryRecord)(nil)).
		Set("status = ?", core.DeliveryStatusProcessing).
		Set("claim_id = ?", claimID).
		Set("attempts = attempts + 1").
		Set("updated_at = ?", now).
		Where("interaction_id = ?", interactionID).
		Where("status = ?", core.DeliveryStatusFailed).
		Exec(ctx)
	if err != nil {
		return core.DeliveryRecord{}, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return core.DeliveryRecord{}, false, err
	}
	if affected == 0 {
		// Another request reclaimed it first.
		existing, err = s.Get(ctx, interactionID)
		if err != nil {
			return core.DeliveryRecord{}, false, err
		}
		return existing, false, nil
	}

	existing.ClaimID = claimID
	existing.Status = core.DeliveryStatusProcessing
	existing.Attempts++
	existing.UpdatedAt = now
	return existing, true, nil
}

func (s *DeliveryStore) Get(ctx context.Context, interactionID string) (core.DeliveryRecord, error) {
	if s == nil || s.db == nil {
		return core.DeliveryRecord{}, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	record := &interactionDeliveryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.interaction_id = ?", strings.TrimSpace(interactionID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.DeliveryRecord{}, fmt.Errorf(
				"sqlstore: delivery not found for interaction %q",
				interactionID,
			)
		}
		return core.DeliveryRecord{}, err
	}
	return deliveryToDomain(record), nil
}

func (s *DeliveryStore) Complete(ctx context.Context, claimID string) error {
	return s.transition(ctx, claimID, core.DeliveryStatusProcessed, "")
}

func (s *DeliveryStore) Fail(ctx context.Context, claimID string, cause error) error {
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	return s.transition(ctx, claimID, core.DeliveryStatusFailed, lastError)
}

// transition is a no-op when the claim id no longer owns the row, so a late
// Complete from a superseded claim cannot clobber the current owner's state.
func (s *DeliveryStore) transition(ctx context.Context, claimID string, status string, lastError string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery store is not configured")
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return fmt.Errorf("sqlstore: claim id is required")
	}
	_, err := s.db.NewUpdate().
		Model((*interactionDeliveryRecord)(nil)).
		Set("status = ?", status).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", time.Now().UTC()).
		Where("claim_id = ?", claimID).
		Where("status = ?", core.DeliveryStatusProcessing).
		Exec(ctx)
	return err
}

// PurgeProcessedBefore removes processed rows older than cutoff. Failed rows
// are kept so the retry path keeps its history.
func (s *DeliveryStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: delivery store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*interactionDeliveryRecord)(nil)).
		Where("status = ?", core.DeliveryStatusProcessed).
		Where("updated_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func deliveryToDomain(record *interactionDeliveryRecord) core.DeliveryRecord {
	if record == nil {
		return core.DeliveryRecord{}
	}
	return core.DeliveryRecord{
		ID:            record.ID,
		ClaimID:       record.ClaimID,
		InteractionID: record.InteractionID,
		Status:        record.Status,
		Attempts:      record.Attempts,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
