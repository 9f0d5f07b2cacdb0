package gateway

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/store"
)

// ErrEmptyRecipients indicates a task-scoped broadcast resolved to zero
// identities. Task broadcasts fail closed: this is refused and logged as a
// security anomaly, never sent to nobody or everybody.
var ErrEmptyRecipients = errors.New("broadcast resolved to zero recipients")

// Resolver translates a domain event into the set of identities entitled to
// see it. Membership is resolved from storage at broadcast time, never
// cached across events.
type Resolver struct {
	store Store
	log   *zap.Logger
}

// NewResolver creates a resolver over the given store.
func NewResolver(st Store, log *zap.Logger) *Resolver {
	return &Resolver{store: st, log: log}
}

// ConversationRecipients returns the current members of a conversation,
// deduplicated, including or excluding the actor per event semantics.
func (r *Resolver) ConversationRecipients(convID, actorID int64, includeActor bool) ([]int64, error) {
	members, err := r.store.ConversationMemberIDs(convID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation %d members: %w", convID, err)
	}

	seen := make(map[int64]struct{}, len(members))
	recipients := make([]int64, 0, len(members))
	for _, userID := range members {
		if userID == actorID && !includeActor {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		recipients = append(recipients, userID)
	}
	return recipients, nil
}

// TaskRecipients returns creator, assignee (if set) and all admins for a
// task event, deduplicated. An empty result is refused with
// ErrEmptyRecipients.
func (r *Resolver) TaskRecipients(task *store.Task) ([]int64, error) {
	admins, err := r.store.AdminIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve admins: %w", err)
	}

	candidates := []int64{task.CreatorID}
	if task.AssigneeID != nil {
		candidates = append(candidates, *task.AssigneeID)
	}
	candidates = append(candidates, admins...)

	seen := make(map[int64]struct{}, len(candidates))
	recipients := make([]int64, 0, len(candidates))
	for _, userID := range candidates {
		if userID == 0 {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		recipients = append(recipients, userID)
	}

	if len(recipients) == 0 {
		r.log.Warn("refusing task broadcast with empty recipient set",
			zap.Int64("task_id", task.ID),
			zap.String("anomaly", "empty_recipient_set"))
		return nil, ErrEmptyRecipients
	}
	return recipients, nil
}
