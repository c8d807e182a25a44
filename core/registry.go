package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// PendingRegistry tracks live, unanswered interactions by id so out-of-band
// callers (command handlers, schedulers) can resolve or expire them. The
// dispatcher registers an interaction before notifying the observer and
// removes it once a terminal response has been produced.
type PendingRegistry struct {
	mu      sync.RWMutex
	pending map[string]*Interaction
}

func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{pending: make(map[string]*Interaction)}
}

func (r *PendingRegistry) Add(interaction *Interaction) error {
	if r == nil {
		return fmt.Errorf("core: pending registry is nil")
	}
	if interaction == nil {
		return fmt.Errorf("core: interaction is nil")
	}
	id := strings.TrimSpace(interaction.ID)
	if id == "" {
		return ErrInvalidInteractionID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[id]; exists {
		return fmt.Errorf("core: interaction already registered: %s", id)
	}
	r.pending[id] = interaction
	return nil
}

func (r *PendingRegistry) Remove(interactionID string) {
	if r == nil {
		return
	}
	id := strings.TrimSpace(interactionID)
	if id == "" {
		return
	}
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

func (r *PendingRegistry) Get(interactionID string) (*Interaction, bool) {
	if r == nil {
		return nil, false
	}
	id := strings.TrimSpace(interactionID)
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	interaction, ok := r.pending[id]
	r.mu.RUnlock()
	return interaction, ok
}

func (r *PendingRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pending)
}

func (r *PendingRegistry) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Resolve fulfills a pending interaction by id.
func (r *PendingRegistry) Resolve(_ context.Context, interactionID string, response json.RawMessage) error {
	interaction, ok := r.Get(interactionID)
	if !ok {
		return registryNotFound(interactionID)
	}
	if err := interaction.Respond(response); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "core: interaction already answered").
			WithCode(http.StatusConflict).
			WithTextCode(ErrorDoubleResponse).
			WithMetadata(map[string]any{"interaction_id": strings.TrimSpace(interactionID)})
	}
	return nil
}

// Expire force-times-out a pending interaction by id.
func (r *PendingRegistry) Expire(_ context.Context, interactionID string) error {
	interaction, ok := r.Get(interactionID)
	if !ok {
		return registryNotFound(interactionID)
	}
	if !interaction.Expire() {
		return goerrors.New("core: interaction already finalized", goerrors.CategoryConflict).
			WithCode(http.StatusConflict).
			WithTextCode(ErrorDoubleResponse).
			WithMetadata(map[string]any{"interaction_id": strings.TrimSpace(interactionID)})
	}
	return nil
}

func registryNotFound(interactionID string) error {
	return goerrors.New("core: interaction not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(ErrorNotFound).
		WithMetadata(map[string]any{"interaction_id": strings.TrimSpace(interactionID)})
}

var _ PendingResolver = (*PendingRegistry)(nil)
