package main

// Manual smoke probe: hits the health endpoint, opens a WebSocket,
// subscribes to a tick feed and prints what comes back. Not part of
// the service.

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8089", "gateway host:port")
	symbol := flag.String("symbol", "XAUUSD", "symbol to subscribe")
	frequency := flag.Int64("frequency", 1000, "push frequency in ms")
	duration := flag.Duration("duration", 15*time.Second, "how long to listen")
	flag.Parse()

	// 1. Health check over REST
	rest := resty.New().SetBaseURL("http://" + *host)
	resp, err := rest.R().Get("/api/health")
	if err != nil {
		fmt.Printf("health check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("health: %s\n", resp.String())

	// 2. WebSocket subscribe
	wsURL := fmt.Sprintf("ws://%s/ws", *host)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Printf("dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"command":   "subscribe",
		"data_type": "tick",
		"params":    map[string]interface{}{"symbol": *symbol},
		"frequency": *frequency,
	}
	if err := conn.WriteJSON(sub); err != nil {
		fmt.Printf("subscribe failed: %v\n", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				fmt.Printf("read error: %v\n", err)
				return
			}
			var pretty map[string]interface{}
			if json.Unmarshal(message, &pretty) == nil {
				out, _ := json.Marshal(pretty)
				fmt.Printf("<- %s\n", out)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-time.After(*duration):
	case <-sigChan:
	case <-done:
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	fmt.Println("probe finished")
}
