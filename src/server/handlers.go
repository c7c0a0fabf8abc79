package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mt5-gateway/src/models"
	"mt5-gateway/src/terminal"
)

// -----------------------------------------------------------------------------
// REST Handlers
//
// Every response carries the same envelope: {"code": N, "message": ...,
// "data": ...}. Code 0 is success; non-zero codes mirror the error
// class (1 = bad request, 2 = terminal not found, 3 = terminal error).
// -----------------------------------------------------------------------------

const (
	codeOK               = 0
	codeBadRequest       = 1
	codeTerminalNotFound = 2
	codeTerminalError    = 3
)

func respond(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    codeOK,
		"message": message,
		"data":    data,
	})
}

func respondError(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": message,
		"data":    nil,
	})
}

// -----------------------------------------------------------------------------

// terminalID reads the terminal_id query parameter, falling back to
// the first configured terminal when absent.
func (s *GatewayServer) terminalID(c *gin.Context) (int64, bool) {
	raw := c.Query("terminal_id")
	if raw == "" {
		return s.defaultTerminalID(), true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "invalid terminal_id")
		return 0, false
	}
	return id, true
}

// handle resolves an existing terminal handle or writes the not-found
// envelope.
func (s *GatewayServer) handle(c *gin.Context) (*terminal.Handle, bool) {
	id, ok := s.terminalID(c)
	if !ok {
		return nil, false
	}
	h, ok := s.Registry.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, codeTerminalNotFound, "terminal not found")
		return nil, false
	}
	return h, true
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

func (s *GatewayServer) getHealth(c *gin.Context) {
	respond(c, "ok", gin.H{
		"status":      "ok",
		"connections": s.clientCount(),
		"terminals":   len(s.Registry.List()),
	})
}

// -----------------------------------------------------------------------------
// Terminal Lifecycle
// -----------------------------------------------------------------------------

func (s *GatewayServer) listTerminals(c *gin.Context) {
	respond(c, "terminal list", s.Registry.List())
}

// -----------------------------------------------------------------------------

type createTerminalRequest struct {
	TerminalID   int64  `json:"terminal_id" binding:"required"`
	TerminalPath string `json:"terminal_path"`
	AccountID    int64  `json:"account_id"`
	Server       string `json:"server"`
}

func (s *GatewayServer) createTerminal(c *gin.Context) {
	var req createTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	h := s.Registry.Create(req.TerminalID)

	if s.DB != nil {
		def := models.MTerminalConfig{
			ID:           req.TerminalID,
			TerminalPath: req.TerminalPath,
			AccountID:    req.AccountID,
			Server:       req.Server,
		}
		if err := s.DB.SaveTerminal(def); err != nil {
			s.Logger.Error("Failed to persist terminal %d: %v", req.TerminalID, err)
		}
	}

	respond(c, "terminal created", h.Info())
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) deleteTerminal(c *gin.Context) {
	id, ok := s.terminalID(c)
	if !ok {
		return
	}

	if !s.Registry.Delete(id) {
		respondError(c, http.StatusNotFound, codeTerminalNotFound, "terminal not found")
		return
	}

	if s.DB != nil {
		if err := s.DB.DeleteTerminal(id); err != nil {
			s.Logger.Error("Failed to delete terminal %d from store: %v", id, err)
		}
	}

	respond(c, "terminal deleted", gin.H{"terminal_id": id})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) pingTerminal(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	if err := h.Ping(c.Request.Context()); err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "pong", gin.H{"terminal_id": h.ID})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) terminalStatus(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	respond(c, "terminal status", h.Info())
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) initializeTerminal(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	if err := h.Initialize(c.Request.Context(), c.Query("terminal_path")); err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "terminal initialized", h.Info())
}

// -----------------------------------------------------------------------------

type loginRequest struct {
	TerminalID   int64  `json:"terminal_id"`
	AccountID    int64  `json:"account_id" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Server       string `json:"server" binding:"required"`
	TerminalPath string `json:"terminal_path"`
}

func (s *GatewayServer) loginTerminal(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TerminalID == 0 {
		req.TerminalID = s.defaultTerminalID()
	}

	h := s.Registry.Create(req.TerminalID)
	ctx := c.Request.Context()

	if err := h.Initialize(ctx, req.TerminalPath); err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}

	info, err := h.Login(ctx, req.AccountID, req.Password, req.Server)
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}

	if s.DB != nil {
		def := models.MTerminalConfig{
			ID:           req.TerminalID,
			TerminalPath: req.TerminalPath,
			AccountID:    req.AccountID,
			Server:       req.Server,
		}
		if err := s.DB.SaveTerminal(def); err != nil {
			s.Logger.Error("Failed to persist terminal %d: %v", req.TerminalID, err)
		}
	}

	respond(c, "login successful", info)
}

// -----------------------------------------------------------------------------
// Market Data
// -----------------------------------------------------------------------------

func (s *GatewayServer) getSymbols(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	symbols, err := h.API.GetSymbols(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "symbols", gin.H{"symbols": symbols, "count": len(symbols)})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getSymbolInfo(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	symbol := c.Query("symbol")
	if symbol == "" {
		respondError(c, http.StatusBadRequest, codeBadRequest, "missing required parameter symbol")
		return
	}
	info, err := h.API.GetSymbolInfo(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "symbol info", info)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getSymbolInfoTick(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	symbol := c.Query("symbol")
	if symbol == "" {
		respondError(c, http.StatusBadRequest, codeBadRequest, "missing required parameter symbol")
		return
	}
	tick, err := h.API.GetTick(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "tick", tick)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getLatestKline(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	symbol := c.Query("symbol")
	interval := c.Query("interval")
	if symbol == "" || interval == "" {
		respondError(c, http.StatusBadRequest, codeBadRequest, "symbol and interval are required")
		return
	}
	bar, err := h.API.GetLatestKline(c.Request.Context(), symbol, interval)
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "kline", bar)
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getKlineSeries(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	symbol := c.Query("symbol")
	interval := c.Query("interval")
	if symbol == "" || interval == "" {
		respondError(c, http.StatusBadRequest, codeBadRequest, "symbol and interval are required")
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, codeBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	bars, err := h.API.GetKlineSeries(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "kline series", gin.H{"symbol": symbol, "interval": interval, "bars": bars, "count": len(bars)})
}

// -----------------------------------------------------------------------------
// Orders / Positions / Account
// -----------------------------------------------------------------------------

func (s *GatewayServer) getOrders(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	orders, err := h.API.GetOrders(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "orders", gin.H{"orders": orders, "count": len(orders)})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getPositions(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	positions, err := h.API.GetPositions(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "positions", gin.H{"positions": positions, "count": len(positions)})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getAccountInfo(c *gin.Context) {
	h, ok := s.handle(c)
	if !ok {
		return
	}
	info, err := h.API.GetAccountInfo(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, codeTerminalError, err.Error())
		return
	}
	respond(c, "account info", info)
}
