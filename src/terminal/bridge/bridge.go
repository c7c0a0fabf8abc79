package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------
// HTTP bridge to a per-terminal agent process
//
// Each terminal identifier maps to its own agent base URL, so session
// isolation is process-level: the gateway never shares an agent between
// identifiers. The agent speaks the uniform envelope {code, message,
// data} with code 0 on success.
// -----------------------------------------------------------------------------

type Client struct {
	TerminalID int64
	Logger     *logger.Logger
	http       *resty.Client
}

// -----------------------------------------------------------------------------

func NewClient(id int64, baseURL string, timeoutSec, maxRetries int, log *logger.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Duration(timeoutSec) * time.Second).
		SetRetryCount(maxRetries).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{TerminalID: id, Logger: log, http: http}
}

// -----------------------------------------------------------------------------

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// -----------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	resp, err := c.http.R().SetContext(ctx).SetQueryParams(query).Get(path)
	return c.finish(path, resp, err, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	return c.finish(path, resp, err, out)
}

func (c *Client) finish(path string, resp *resty.Response, err error, out interface{}) error {
	if err != nil {
		c.Logger.Warning("Terminal %d: agent unreachable on %s: %v", c.TerminalID, path, err)
		return errors.Wrapf(err, "terminal %d: %s", c.TerminalID, path)
	}
	if resp.IsError() {
		c.Logger.Warning("Terminal %d: agent returned http %d on %s", c.TerminalID, resp.StatusCode(), path)
		return errors.Errorf("terminal %d: %s: http %d", c.TerminalID, path, resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		c.Logger.Warning("Terminal %d: bad envelope on %s: %v", c.TerminalID, path, err)
		return errors.Wrapf(err, "terminal %d: %s: bad envelope", c.TerminalID, path)
	}
	if env.Code != 0 {
		c.Logger.Debug("Terminal %d: agent rejected %s: %s", c.TerminalID, path, env.Message)
		return errors.Errorf("terminal %d: %s: %s", c.TerminalID, path, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "terminal %d: %s: bad payload", c.TerminalID, path)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// ITerminalAPI implementation
// -----------------------------------------------------------------------------

func (c *Client) Initialize(ctx context.Context, terminalPath string) error {
	return c.get(ctx, "/initialize_client", map[string]string{"terminal_path": terminalPath}, nil)
}

func (c *Client) Login(ctx context.Context, accountID int64, password, server string) (*models.MAccountInfo, error) {
	body := map[string]interface{}{
		"account_id": accountID,
		"password":   password,
		"server":     server,
	}
	var info models.MAccountInfo
	if err := c.post(ctx, "/login", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/ping", nil, nil)
}

func (c *Client) Shutdown() error {
	// The agent process outlives gateway restarts; there is nothing to
	// release on our side beyond the connection pool.
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetSymbols(ctx context.Context) ([]string, error) {
	var payload struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.get(ctx, "/market/get_symbols", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Symbols, nil
}

func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (*models.MSymbolInfo, error) {
	var info models.MSymbolInfo
	if err := c.get(ctx, "/market/get_symbol_info", map[string]string{"symbol": symbol}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetTick(ctx context.Context, symbol string) (*models.MTick, error) {
	var tick models.MTick
	if err := c.get(ctx, "/market/get_symbol_info_tick", map[string]string{"symbol": symbol}, &tick); err != nil {
		return nil, err
	}
	return &tick, nil
}

func (c *Client) GetLatestKline(ctx context.Context, symbol, interval string) (*models.MBar, error) {
	query := map[string]string{"symbol": symbol, "interval": interval}
	var bar models.MBar
	if err := c.get(ctx, "/market/get_latest_kline", query, &bar); err != nil {
		return nil, err
	}
	return &bar, nil
}

func (c *Client) GetKlineSeries(ctx context.Context, symbol, interval string, limit int) ([]models.MBar, error) {
	query := map[string]string{
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}
	var bars []models.MBar
	if err := c.get(ctx, "/market/get_kline_series", query, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetOrders(ctx context.Context) ([]models.MOrder, error) {
	var orders []models.MOrder
	if err := c.get(ctx, "/order/get_orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetPositions(ctx context.Context, symbol string) ([]models.MPosition, error) {
	query := map[string]string{}
	if symbol != "" {
		query["symbol"] = symbol
	}
	var positions []models.MPosition
	if err := c.get(ctx, "/position/get_positions", query, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) GetAccountInfo(ctx context.Context) (*models.MAccountInfo, error) {
	var info models.MAccountInfo
	if err := c.get(ctx, "/account/get_account_info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// -----------------------------------------------------------------------------

// String identifies the client in logs.
func (c *Client) String() string {
	return fmt.Sprintf("bridge(terminal=%d)", c.TerminalID)
}
