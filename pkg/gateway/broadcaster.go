package gateway

import (
	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/protocol"
)

// Broadcaster delivers envelopes to recipient identities through the
// registry. Delivery is best-effort per connection: a broken socket is
// skipped and left for the heartbeat sweep to reap.
type Broadcaster struct {
	registry *Registry
	log      *zap.Logger
	metrics  *Metrics
}

// NewBroadcaster creates a broadcaster over the given registry.
func NewBroadcaster(registry *Registry, log *zap.Logger, metrics *Metrics) *Broadcaster {
	return &Broadcaster{registry: registry, log: log, metrics: metrics}
}

// Broadcast sends the envelope to every live connection of every recipient.
// Returns the subset of recipients with zero live connections, so the caller
// can route them to the offline-notification collaborator.
func (b *Broadcaster) Broadcast(recipients []int64, env protocol.Envelope) []int64 {
	var offline []int64
	delivered := 0

	for _, userID := range recipients {
		conns := b.registry.Connections(userID)
		if len(conns) == 0 {
			offline = append(offline, userID)
			continue
		}
		for _, conn := range conns {
			if err := conn.Send(env); err != nil {
				b.log.Debug("broadcast send failed, skipping connection",
					zap.Int64("user_id", userID),
					zap.String("event", env.Type),
					zap.Error(err))
				continue
			}
			delivered++
		}
	}

	b.metrics.RecordBroadcast(env.Type, delivered)
	return offline
}

// BroadcastAllExcept sends the envelope to every live connection except
// those owned by the excluded identity. Used for presence fan-out.
func (b *Broadcaster) BroadcastAllExcept(excludeUserID int64, env protocol.Envelope) {
	delivered := 0
	for _, conn := range b.registry.AllConnections() {
		if conn.UserID() == excludeUserID {
			continue
		}
		if err := conn.Send(env); err != nil {
			b.log.Debug("broadcast send failed, skipping connection",
				zap.Int64("user_id", conn.UserID()),
				zap.String("event", env.Type),
				zap.Error(err))
			continue
		}
		delivered++
	}
	b.metrics.RecordBroadcast(env.Type, delivered)
}

// SendToUser delivers the envelope to all of one identity's connections.
// Returns false when the identity has no live connection.
func (b *Broadcaster) SendToUser(userID int64, env protocol.Envelope) bool {
	conns := b.registry.Connections(userID)
	if len(conns) == 0 {
		return false
	}
	for _, conn := range conns {
		if err := conn.Send(env); err != nil {
			b.log.Debug("send failed, skipping connection",
				zap.Int64("user_id", userID),
				zap.String("event", env.Type),
				zap.Error(err))
		}
	}
	return true
}
