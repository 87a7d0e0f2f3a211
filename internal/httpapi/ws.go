package httpapi

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
	"github.com/rlaalswo86-stack/godlifedaily/internal/screener"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait    = 10 * time.Second
	criteriaWait = 30 * time.Second
)

// scanEvent is one message of the scan stream.
type scanEvent struct {
	Type   string            `json:"type"` // progress, result or error
	Index  int               `json:"index,omitempty"`
	Total  int               `json:"total,omitempty"`
	Symbol string            `json:"symbol,omitempty"`
	Reason model.SkipReason  `json:"reason,omitempty"`
	RSI    *float64          `json:"rsi,omitempty"`
	Result *model.ScanResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// handleScanWS runs a scan for the criteria sent as the first client message
// and streams one progress event per symbol, then the result. Closing the
// socket cancels the scan.
func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WARN] ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(criteriaWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		log.Printf("[WARN] ws read criteria: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	send := func(ev scanEvent) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(ev)
	}

	criteria, err := s.decodeCriteria(bytes.NewReader(msg))
	if err != nil {
		send(scanEvent{Type: "error", Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Any read error, including the client going away, cancels the scan.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	progress := func(p screener.Progress) {
		if ctx.Err() != nil {
			return
		}
		ev := scanEvent{
			Type:   "progress",
			Index:  p.Index,
			Total:  p.Total,
			Symbol: p.Symbol,
			Reason: p.Outcome.Reason,
			RSI:    p.Outcome.RSI,
		}
		if err := send(ev); err != nil {
			log.Printf("[WARN] ws write progress: %v", err)
			cancel()
		}
	}

	res, err := s.deps.Scanner.Scan(ctx, criteria, progress)
	if res == nil {
		send(scanEvent{Type: "error", Error: err.Error()})
		return
	}
	if errors.Is(err, context.Canceled) {
		log.Printf("[INFO] ws scan %s cancelled by client", res.ID)
		return
	}
	if err := send(scanEvent{Type: "result", Result: res}); err != nil {
		log.Printf("[WARN] ws write result: %v", err)
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished"))
}
