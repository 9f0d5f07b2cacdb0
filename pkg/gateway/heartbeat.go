package gateway

import (
	"time"

	"go.uber.org/zap"
)

// heartbeatLoop pings every connection on a fixed interval and terminates
// connections that failed to answer the previous ping. A dead peer is thus
// reaped after exactly one missed interval, which triggers unregistration
// and presence re-evaluation.
func (s *Server) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.sweepConnections()
		}
	}
}

// sweepConnections runs one liveness pass over the registry.
func (s *Server) sweepConnections() {
	for _, conn := range s.registry.AllConnections() {
		if conn.PendingPings() > 0 {
			s.terminate(conn, "missed heartbeat")
			continue
		}
		if err := conn.Ping(); err != nil {
			s.terminate(conn, "ping write failed")
		}
	}
}

func (s *Server) terminate(conn *Conn, reason string) {
	s.log.Info("terminating unresponsive connection",
		zap.Int64("user_id", conn.UserID()),
		zap.String("reason", reason))

	conn.Close()
	wentOffline := s.registry.Unregister(conn)
	s.presence.HandleDisconnect(conn.UserID(), wentOffline)
	s.metrics.RecordHeartbeatTermination()
}
