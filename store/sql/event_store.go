package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EventLogStore appends terminal interaction outcomes to the audit log.
type EventLogStore struct {
	db   *bun.DB
	repo repository.Repository[*interactionEventRecord]
}

func NewEventLogStore(db *bun.DB) (*EventLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*interactionEventRecord](db, eventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid event log repository wiring: %w", err)
		}
	}
	return &EventLogStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *EventLogStore) Record(ctx context.Context, event core.InteractionEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: event log store is not configured")
	}
	if strings.TrimSpace(event.InteractionID) == "" {
		return fmt.Errorf("sqlstore: interaction id is required")
	}
	if strings.TrimSpace(event.Outcome) == "" {
		return fmt.Errorf("sqlstore: event outcome is required")
	}

	id := strings.TrimSpace(event.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	record := &interactionEventRecord{
		ID:            id,
		InteractionID: strings.TrimSpace(event.InteractionID),
		Kind:          strings.TrimSpace(event.Kind),
		Outcome:       strings.TrimSpace(event.Outcome),
		Error:         strings.TrimSpace(event.Error),
		Metadata:      RedactMetadata(event.Metadata),
		CreatedAt:     createdAt.UTC(),
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// ListByInteraction returns the recorded outcomes for one interaction in
// append order.
func (s *EventLogStore) ListByInteraction(ctx context.Context, interactionID string) ([]core.InteractionEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: event log store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("interaction_id", "=", strings.TrimSpace(interactionID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	events := make([]core.InteractionEvent, 0, len(records))
	for _, record := range records {
		events = append(events, eventToDomain(record))
	}
	return events, nil
}

// PurgeBefore removes event rows older than cutoff.
func (s *EventLogStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: event log store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*interactionEventRecord)(nil)).
		Where("created_at < ?", cutoff.UTC()).
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

func eventToDomain(record *interactionEventRecord) core.InteractionEvent {
	if record == nil {
		return core.InteractionEvent{}
	}
	return core.InteractionEvent{
		ID:            record.ID,
		InteractionID: record.InteractionID,
		Kind:          record.Kind,
		Outcome:       record.Outcome,
		Error:         record.Error,
		Metadata:      record.Metadata,
		CreatedAt:     record.CreatedAt,
	}
}
