package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"mt5-gateway/src/interfaces"
	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
	"mt5-gateway/src/subscription"
	"mt5-gateway/src/terminal"
)

// -----------------------------------------------------------------------------
// GatewayServer
// -----------------------------------------------------------------------------

type GatewayServer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	engine     *gin.Engine
	Registry   *terminal.Registry
	Index      *subscription.Index
	DB         interfaces.IDatabase
	Dispatcher *Dispatcher
	Scheduler  *Scheduler

	// WebSocket clients
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	// stopped is closed when the hub loop exits; register/unregister
	// sends select against it so late handshakes and exiting read pumps
	// never block on a hub that is gone.
	stopped chan struct{}

	cancel context.CancelFunc
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewGatewayServer(cfg *models.MConfig, log *logger.Logger, reg *terminal.Registry, db interfaces.IDatabase) *GatewayServer {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	index := subscription.NewIndex()

	s := &GatewayServer{
		Config:   cfg,
		Logger:   log,
		engine:   gin.Default(),
		Registry: reg,
		Index:    index,
		DB:       db,
		clients:  make(map[*Client]struct{}),
		// Unbuffered: the hub loop is the single owner of the client set
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}

	s.Dispatcher = &Dispatcher{
		Index:              index,
		Logger:             log,
		DefaultTerminalID:  s.defaultTerminalID(),
		DefaultFrequencyMs: cfg.Scheduler.DefaultFrequencyMs,
	}

	s.Scheduler = &Scheduler{
		Index:        index,
		Registry:     reg,
		Logger:       log,
		TickInterval: time.Duration(cfg.Scheduler.TickIntervalMs) * time.Millisecond,
		Backoff:      time.Duration(cfg.Scheduler.BackoffSeconds) * time.Second,
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) defaultTerminalID() int64 {
	if len(s.Config.Terminals) > 0 {
		return s.Config.Terminals[0].ID
	}
	return 0
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *GatewayServer) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.getHealth)

	term := api.Group("/terminal")
	term.GET("/list", s.listTerminals)
	term.POST("/create", s.createTerminal)
	term.DELETE("/delete", s.deleteTerminal)
	term.GET("/ping", s.pingTerminal)
	term.GET("/status", s.terminalStatus)
	term.GET("/initialize", s.initializeTerminal)
	term.POST("/login", s.loginTerminal)

	market := api.Group("/market")
	market.GET("/get_symbols", s.getSymbols)
	market.GET("/get_symbol_info", s.getSymbolInfo)
	market.GET("/get_symbol_info_tick", s.getSymbolInfoTick)
	market.GET("/get_latest_kline", s.getLatestKline)
	market.GET("/get_kline_series", s.getKlineSeries)

	api.GET("/order/get_orders", s.getOrders)
	api.GET("/position/get_positions", s.getPositions)
	api.GET("/account/get_account_info", s.getAccountInfo)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *GatewayServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting gateway on %s", addr)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.handleWebsockets(ctx)
	go s.Scheduler.Run(ctx)

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Hub loop
//
// Single owner of the client set. Registration sends the welcome frame;
// deregistration detaches the connection from every subscription record
// it belongs to, even when the read loop died on an error.
// -----------------------------------------------------------------------------

func (s *GatewayServer) handleWebsockets(ctx context.Context) {
	for {
		select {
		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			s.clientsMu.Unlock()

			client.Deliver(&models.MWelcome{
				Type:      "welcome",
				Message:   "connected to terminal gateway",
				Timestamp: time.Now().UnixMilli(),
			})
			s.Logger.Info("Client %s connected", client.ID())

		case client := <-s.unregister:
			s.clientsMu.Lock()
			_, ok := s.clients[client]
			if ok {
				delete(s.clients, client)
			}
			s.clientsMu.Unlock()

			if ok {
				removed := s.Index.RemoveSubscriber(client.ID())
				client.close()
				s.Logger.Info("Client %s disconnected (%d subscriptions dropped)", client.ID(), removed)
			}

		case <-ctx.Done():
			s.clientsMu.Lock()
			for client := range s.clients {
				client.close()
				delete(s.clients, client)
			}
			s.clientsMu.Unlock()
			close(s.stopped)
			return
		}
	}
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) clientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
