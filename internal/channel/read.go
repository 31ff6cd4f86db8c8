package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
	"github.com/gorilla/websocket"
)

// read pumps inbound frames into events until the connection fails.
func (c *Channel) read(ctx context.Context, conn *websocket.Conn, events chan<- types.Event) error {
	if c.opts.PingInterval > 0 {
		deadline := 2 * c.opts.PingInterval
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(deadline))
		})
		stop := make(chan struct{})
		defer close(stop)
		go c.keepalive(conn, stop)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if c.opts.PingInterval > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(2 * c.opts.PingInterval))
		}

		ev, err := Decode(data)
		if err != nil {
			c.logf("skipping live message: %v", err)
			continue
		}
		if ev.Kind == types.EventDisconnected {
			return ErrUnauthorized
		}
		if !c.emit(ctx, events, ev) {
			return ctx.Err()
		}
	}
}

func (c *Channel) keepalive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// Decode turns one inbound frame into an event. An auth_error frame decodes
// to an unauthorized disconnect event.
func Decode(data []byte) (types.Event, error) {
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return types.Event{}, fmt.Errorf("invalid envelope: %w", err)
	}
	switch env.Kind {
	case "":
		return types.Event{}, fmt.Errorf("envelope without kind")
	case types.MessageKindNotification, types.MessageKindNewNotification:
		rec, err := decodeNotification(env.Data)
		if err != nil {
			return types.Event{}, fmt.Errorf("%s: %w", env.Kind, err)
		}
		return types.Event{Kind: types.EventNotification, Notification: &rec}, nil
	case types.MessageKindAuthError:
		return types.Event{Kind: types.EventDisconnected, Reason: ReasonUnauthorized, Err: ErrUnauthorized}, nil
	}
	return types.Event{Kind: types.EventOther, MessageKind: env.Kind, Data: env.Data}, nil
}

// decodeNotification accepts either a bare record or the backend's
// {"type":"notification","data":{...}} wrapper. A value with a top-level _id
// is always a record, even when its own type is "notification".
func decodeNotification(data json.RawMessage) (types.Notification, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return types.Notification{}, fmt.Errorf("missing data")
	}
	var wrapper struct {
		ID   string          `json:"_id"`
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return types.Notification{}, err
	}
	if wrapper.ID == "" && wrapper.Type == "notification" && isObject(wrapper.Data) {
		data = wrapper.Data
	}
	var rec types.Notification
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.Notification{}, err
	}
	if rec.ID == "" {
		return types.Notification{}, fmt.Errorf("notification without id")
	}
	return rec, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
