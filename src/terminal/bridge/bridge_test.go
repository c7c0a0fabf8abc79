package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-gateway/src/logger"
)

// -----------------------------------------------------------------------------

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(1, ts.URL, 2, 0, logger.NewLogger(nil, "test"))
}

// -----------------------------------------------------------------------------

func TestGetTickDecodesEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market/get_symbol_info_tick", r.URL.Path)
		assert.Equal(t, "XAUUSD", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"code":0,"message":"ok","data":{"symbol":"XAUUSD","bid":2400.5,"ask":2400.9}}`))
	})

	tick, err := c.GetTick(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, "XAUUSD", tick.Symbol)
	assert.Equal(t, 2400.5, tick.Bid)
	assert.Equal(t, 2400.9, tick.Ask)
}

func TestGetSymbolsUnwrapsList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"message":"ok","data":{"symbols":["EURUSD","XAUUSD"]}}`))
	})

	symbols, err := c.GetSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"EURUSD", "XAUUSD"}, symbols)
}

func TestAgentRejectionSurfacesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":3,"message":"terminal busy","data":null}`))
	})

	_, err := c.GetAccountInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal busy")
}

func TestHTTPErrorSurfacesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 500")
}

func TestBadEnvelopeIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	err := c.Initialize(context.Background(), "/opt/mt5/terminal64.exe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad envelope")
}
