package maevex

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mxtools/maevexctl/internal/logging"
)

const (
	// eventReadWait bounds how long we wait for the next event before
	// treating the stream as dead
	eventReadWait = 60 * time.Second

	// eventPingPeriod must be less than eventReadWait
	eventPingPeriod = (eventReadWait * 9) / 10
)

// EventType identifies what changed on the appliance
type EventType string

const (
	// EventStateChanged signals that settings or recording state changed;
	// the event carries a fresh State snapshot
	EventStateChanged EventType = "state-changed"

	// EventStorageChanged signals that the local-storage file set changed
	EventStorageChanged EventType = "storage-changed"

	// EventHeartbeat is a periodic liveness event with no payload
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message from the appliance's status stream.
type Event struct {
	Type  EventType `json:"type"`
	State *State    `json:"state,omitempty"`
}

// Events subscribes to the appliance's WebSocket status stream and
// delivers events until the context is cancelled or the stream fails.
// The returned channel is closed when the subscription ends.
func (c *Client) Events(ctx context.Context) (<-chan Event, error) {
	wsURL := strings.Replace(c.BaseURL, "http", "ws", 1) + apiPrefix + "/events"

	dialer := websocket.Dialer{
		HandshakeTimeout: DefaultTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	}

	header := http.Header{}
	if c.Username != "" || c.Password != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		header.Set("Authorization", "Basic "+auth)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, NewAuthError("event stream authentication failed")
		}
		return nil, NewNetworkError("failed to open event stream", err)
	}

	events := make(chan Event)

	// Ping loop keeps the stream alive and tears the connection down on
	// context cancellation so the read loop unblocks.
	go func() {
		ticker := time.NewTicker(eventPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(DefaultTimeout)); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	go func() {
		defer close(events)
		defer func() { _ = conn.Close() }()

		for {
			if err := conn.SetReadDeadline(time.Now().Add(eventReadWait)); err != nil {
				return
			}

			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					logging.Warn("Event stream closed",
						zap.String("host", c.host),
						zap.Error(err),
					)
				}
				return
			}

			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				logging.Warn("Discarding malformed event",
					zap.String("host", c.host),
					zap.Error(err),
				)
				continue
			}

			logging.LogDeviceEvent(c.host, string(ev.Type))

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
