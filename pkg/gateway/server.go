package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/notify"
	"github.com/aeolun/teamline/pkg/protocol"
)

// Server is the realtime gateway: it owns the HTTP listener, the connection
// registry and every component fanning events out to clients.
type Server struct {
	config   ServerConfig
	log      *zap.Logger
	store    Store
	verifier TokenVerifier
	notifier notify.Notifier
	metrics  *Metrics

	registry    *Registry
	presence    *PresenceTracker
	broadcaster *Broadcaster
	resolver    *Resolver
	calls       *CallManager

	upgrader   websocket.Upgrader
	httpServer *http.Server
	shutdown   chan struct{}
	wg         sync.WaitGroup
}

// New creates a gateway server. metrics may be nil (e.g. in tests).
func New(cfg ServerConfig, st Store, verifier TokenVerifier, notifier notify.Notifier, log *zap.Logger, metrics *Metrics) *Server {
	registry := NewRegistry(metrics)
	broadcaster := NewBroadcaster(registry, log, metrics)

	return &Server{
		config:      cfg,
		log:         log,
		store:       st,
		verifier:    verifier,
		notifier:    notifier,
		metrics:     metrics,
		registry:    registry,
		broadcaster: broadcaster,
		presence:    NewPresenceTracker(registry, broadcaster, log, metrics),
		resolver:    NewResolver(st, log),
		calls:       NewCallManager(st, registry, broadcaster, notifier, log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		shutdown: make(chan struct{}),
	}
}

// Registry exposes the connection registry to collaborating services.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Start begins serving WebSocket upgrades and runs the heartbeat sweep.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.wg.Add(1)
	go s.heartbeatLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.log.Info("gateway listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("gateway server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the server, closing every live connection with a
// going-away frame.
func (s *Server) Stop() error {
	close(s.shutdown)

	var shutdownErr error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	for _, conn := range s.registry.AllConnections() {
		conn.Close()
		s.registry.Unregister(conn)
	}

	s.wg.Wait()
	return shutdownErr
}

// handleWebSocket upgrades the HTTP request and binds the connection to the
// identity carried in the token query parameter. An invalid or missing
// credential closes the transport with a policy-violation code before the
// connection is ever registered.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	identity, err := s.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		// Not an application error: unauthenticated handshakes are expected
		// background noise.
		s.metrics.RecordHandshakeRejection()
		deadline := time.Now().Add(time.Second)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid credentials"), deadline)
		ws.Close()
		return
	}

	conn := NewConn(identity.UserID, ws, s.config.WriteTimeout)
	ws.SetReadLimit(s.config.MaxMessageBytes)
	ws.SetPongHandler(func(string) error {
		conn.MarkAlive()
		return nil
	})

	cameOnline := s.registry.Register(conn)
	s.presence.HandleConnect(conn, cameOnline)

	s.log.Info("client connected",
		zap.Int64("user_id", identity.UserID),
		zap.String("remote", r.RemoteAddr))

	go s.readLoop(identity, conn, ws)
}

// readLoop services inbound frames for one connection. Frames are processed
// sequentially per connection; cross-connection ordering is not guaranteed.
func (s *Server) readLoop(identity Identity, conn *Conn, ws *websocket.Conn) {
	defer func() {
		conn.Close()
		wentOffline := s.registry.Unregister(conn)
		s.presence.HandleDisconnect(identity.UserID, wentOffline)
		s.log.Info("client disconnected", zap.Int64("user_id", identity.UserID))
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		env, err := protocol.ParseEnvelope(raw)
		if err != nil {
			conn.Send(protocol.NewError(protocol.ErrCodeBadEnvelope, err.Error()))
			continue
		}
		if !protocol.IsInbound(env.Type) {
			conn.Send(protocol.NewError(protocol.ErrCodeUnknownType, "unsupported message type: "+env.Type))
			continue
		}

		s.handleEnvelope(identity, conn, env)
	}
}
