package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// ErrNotConnected is returned by DeviceChannel.Publish while the socket is down.
var ErrNotConnected = errors.New("device channel not connected")

// deviceOutbound is what the controller's /ws/scheduler endpoint accepts.
type deviceOutbound struct {
	Action     string          `json:"action"`
	ScheduleID *string         `json:"scheduleId,omitempty"`
	Data       *model.Schedule `json:"data,omitempty"`
}

// deviceInbound is what the controller pushes to every connected client.
type deviceInbound struct {
	Type      string          `json:"type"`
	IsPending bool            `json:"isPending"`
	Data      *model.Schedule `json:"data"`
}

// DeviceChannel keeps a WebSocket open to the controller, reconnecting with
// exponential backoff. Messages sent while disconnected are dropped; the draft
// repository stays authoritative for resume.
type DeviceChannel struct {
	url    string
	dialer *websocket.Dialer
	handle func(model.Notice)

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewDeviceChannel(url string, handle func(model.Notice)) *DeviceChannel {
	return &DeviceChannel{url: url, dialer: websocket.DefaultDialer, handle: handle}
}

func (d *DeviceChannel) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// Publish forwards draft activity in the controller's own message format.
// Notices the controller has no action for are ignored.
func (d *DeviceChannel) Publish(_ context.Context, n model.Notice) error {
	var out deviceOutbound
	switch n.Action {
	case model.ActionStartCreating:
		out = deviceOutbound{Action: n.Action}
	case model.ActionStartEditing:
		id := n.ScheduleID
		out = deviceOutbound{Action: n.Action, ScheduleID: &id}
	case model.ActionUpdatePending:
		out = deviceOutbound{Action: n.Action, Data: n.Data}
	default:
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return ErrNotConnected
	}
	d.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return d.conn.WriteJSON(out)
}

// Run dials and reads until ctx is done.
func (d *DeviceChannel) Run(ctx context.Context) {
	backoff := minBackoff
	for {
		conn, _, err := d.dialer.DialContext(ctx, d.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("url", d.url).Dur("retry_in", backoff).Msg("device channel dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = minBackoff
		log.Info().Str("url", d.url).Msg("device channel connected")
		d.setConn(conn)
		d.readLoop(ctx, conn)
		d.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Warn().Str("url", d.url).Msg("device channel closed, reconnecting")
	}
}

func (d *DeviceChannel) setConn(c *websocket.Conn) {
	d.mu.Lock()
	d.conn = c
	d.mu.Unlock()
}

func (d *DeviceChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in deviceInbound
		if err := json.Unmarshal(raw, &in); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed device message")
			continue
		}
		if n, ok := toNotice(in); ok && d.handle != nil {
			d.handle(n)
		}
	}
}

func toNotice(in deviceInbound) (model.Notice, bool) {
	switch in.Type {
	case model.ActionPendingSchedule:
		if in.IsPending && in.Data != nil {
			return model.Notice{Action: model.ActionPendingSchedule, ScheduleID: in.Data.Name, Data: in.Data}, true
		}
		return model.Notice{Action: model.ActionCancelEditing}, true
	case model.ActionScheduleSaved:
		return model.Notice{Action: model.ActionScheduleSaved}, true
	}
	return model.Notice{}, false
}
