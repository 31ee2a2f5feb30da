// Package server exposes the casino over WebSocket: connections authenticate,
// join tables through the registry and exchange JSON messages, while table
// events fan back out to every subscriber.
package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/bokk3/gamble-fun-sub001/internal/ai"
	"github.com/bokk3/gamble-fun-sub001/internal/game"
	"github.com/bokk3/gamble-fun-sub001/internal/store"
	"github.com/bokk3/gamble-fun-sub001/internal/table"
)

// Server is the WebSocket front end. It implements table.Sink so orchestrator
// events flow straight to connected clients.
type Server struct {
	cfg         *Config
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc

	registry   *table.Registry
	profiles   map[string]ai.Profile
	httpServer *http.Server
}

// NewServer wires the registry from configuration and prepares the listener.
func NewServer(cfg *Config, logger *log.Logger, handStore store.HandStore, ledger store.Ledger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		registry:    table.NewRegistry(logger),
		profiles:    make(map[string]ai.Profile),
	}

	for _, p := range cfg.Profiles {
		s.profiles[p.Name] = p.Profile()
	}

	engine := ai.NewEngine(rand.New(rand.NewSource(time.Now().UnixNano())))
	for _, tc := range cfg.Tables {
		s.registry.Define(table.Config{
			TableID:        tc.Name,
			SmallBlind:     tc.SmallBlind,
			BigBlind:       tc.BigBlind,
			MinBuyIn:       tc.BuyInMin,
			MaxBuyIn:       tc.BuyInMax,
			MaxSeats:       tc.MaxSeats,
			TurnTimeout:    tc.TurnTimeout(),
			InterHandDelay: tc.InterHandDelay(),
			GraceWindow:    tc.GraceWindow(),
			Logger:         logger,
			Sink:           s,
			Store:          handStore,
			Ledger:         ledger,
			Engine:         engine,
		})
	}
	s.registry.OnCreate = s.seedBots

	return s
}

// seedBots fills a freshly started table with its configured house bots.
func (s *Server) seedBots(tableID string, o *table.Orchestrator) {
	for _, tc := range s.cfg.Tables {
		if tc.Name != tableID {
			continue
		}
		for _, name := range tc.Bots {
			profile, ok := s.profiles[name]
			if !ok {
				continue
			}
			if _, err := o.AddAI(s.ctx, profile, 0); err != nil {
				s.logger.Error("Failed to seat house bot", "table", tableID, "profile", name, "error", err)
			}
		}
		return
	}
}

// Start runs the listener until the context is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Address, s.cfg.Server.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", addr)
		errc <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Stop shuts down the listener, the connections and every running table.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.registry.Close()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
	return nil
}

// run handles connection lifecycle.
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()

			if ok {
				// A dropped socket starts the seat's grace window; the
				// table cashes the seat out if nobody reconnects.
				userID := conn.UserID()
				tableID := conn.Table()
				if userID != "" && tableID != "" {
					if o, found := s.registry.Get(tableID); found {
						_ = o.MarkDisconnected(s.ctx, game.HumanIdentity(userID))
					}
				}
				_ = conn.Close()
				s.logger.Info("Client disconnected", "user", userID, "total", total)
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket upgrades an HTTP request into a client connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Publish implements table.Sink by broadcasting to every connection watching
// the table.
func (s *Server) Publish(tableID string, event table.Event) {
	msg, err := NewMessage(event.Type, event.Data)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", event.Type, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.Table() == tableID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Debug("Failed to send event", "type", event.Type, "error", err)
			}
		}
	}
}

// PublishTo implements table.Sink by delivering privately to one identity.
// Events addressed to bots are dropped; bots live inside the process.
func (s *Server) PublishTo(tableID string, identity game.Identity, event table.Event) {
	if identity.IsAI() {
		return
	}
	msg, err := NewMessage(event.Type, event.Data)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", event.Type, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.connections {
		if conn.UserID() == identity.UserID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Debug("Failed to send private event", "type", event.Type, "error", err)
			}
			return
		}
	}
}

// Registry exposes the table registry for the connection handlers.
func (s *Server) Registry() *table.Registry {
	return s.registry
}

// Profile looks up a configured AI profile by name.
func (s *Server) Profile(name string) (ai.Profile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}
