package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/platekit/internal/adapters/nats"
	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "runs" | "completed" | "empty" | "failed" | "broadcast"
}

// channelSubject maps a client channel onto a NATS subject.
func channelSubject(channel string) (string, bool) {
	switch channel {
	case "", "runs":
		return natsadapter.SubjectRuns, true
	case string(domain.RunCompleted), string(domain.RunEmpty), string(domain.RunFailed):
		return natsadapter.RunSubject(domain.RunStatus(channel)), true
	case "broadcast":
		return natsadapter.SubjectBroadcast, true
	}
	return "", false
}

// relayPayload turns a NATS message into the JSON sent to the browser.
// Run events are protobuf on the wire; broadcasts are already JSON.
func relayPayload(msg *nats.Msg) ([]byte, error) {
	if msg.Subject == natsadapter.SubjectBroadcast {
		return msg.Data, nil
	}
	return natsadapter.RunEventJSON(msg.Data)
}

// WebSocketHandler returns a handler that upgrades to WebSocket
// and relays filter run events to connected clients.
// Clients send JSON: {"action":"subscribe","channel":"failed"}
// Every client starts subscribed to all runs.
func WebSocketHandler(nc *nats.Conn, logger *slog.Logger) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		logger.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeRaw := func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return writeRaw(data)
		}
		relay := func(msg *nats.Msg) {
			data, err := relayPayload(msg)
			if err != nil {
				logger.Warn("ws relay: undecodable message", "subject", msg.Subject, "error", err)
				return
			}
			_ = writeRaw(data)
		}

		sub, err := nc.Subscribe(natsadapter.SubjectRuns, relay)
		if err != nil {
			logger.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[natsadapter.SubjectRuns] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := channelSubject(m.Channel)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		logger.Info("ws client disconnected", "remote", remoteAddr)
	}
}
