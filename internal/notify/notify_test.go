package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestMultiJoinsErrors(t *testing.T) {
	var got []string
	ok := Func(func(_ context.Context, n model.Notice) error {
		got = append(got, n.Action)
		return nil
	})
	bad := Func(func(context.Context, model.Notice) error { return errors.New("down") })

	err := Multi{ok, nil, bad, ok}.Publish(context.Background(), model.Notice{Action: model.ActionUpdatePending})
	assert.EqualError(t, err, "down")
	assert.Equal(t, []string{model.ActionUpdatePending, model.ActionUpdatePending}, got)
}

func TestHubBroadcastsNoticesAndMarkers(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), model.Notice{Action: model.ActionStartEditing, ScheduleID: "Veg"}))
	hub.Marker(model.Marker{Minute: 600, LeftPercent: 41.6})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, TypeNotice, first.Type)
	var n model.Notice
	require.NoError(t, json.Unmarshal(first.Data, &n))
	assert.Equal(t, "Veg", n.ScheduleID)

	assert.Equal(t, TypeMarker, second.Type)
	var m model.Marker
	require.NoError(t, json.Unmarshal(second.Data, &m))
	assert.Equal(t, 600, m.Minute)
}

// fakeDevice accepts one socket at a time and records what it receives.
type fakeDevice struct {
	mu       sync.Mutex
	received []map[string]any
	conns    chan *websocket.Conn
}

func (f *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.conns <- conn
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		f.mu.Lock()
		f.received = append(f.received, msg)
		f.mu.Unlock()
	}
}

func (f *fakeDevice) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func TestDeviceChannelTranslatesMessages(t *testing.T) {
	dev := &fakeDevice{conns: make(chan *websocket.Conn, 4)}
	srv := httptest.NewServer(dev)
	defer srv.Close()

	notices := make(chan model.Notice, 4)
	ch := NewDeviceChannel(wsURL(srv), func(n model.Notice) { notices <- n })

	assert.ErrorIs(t, ch.Publish(context.Background(), model.Notice{Action: model.ActionStartCreating}), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ch.Run(ctx)
		close(done)
	}()

	var server *websocket.Conn
	select {
	case server = <-dev.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("device channel never connected")
	}
	require.Eventually(t, ch.Connected, time.Second, 5*time.Millisecond)

	draft := model.Schedule{Name: "Veg", Events: []model.Event{}}
	require.NoError(t, ch.Publish(ctx, model.Notice{Action: model.ActionStartEditing, ScheduleID: "Veg"}))
	require.NoError(t, ch.Publish(ctx, model.Notice{Action: model.ActionUpdatePending, Data: &draft}))
	require.NoError(t, ch.Publish(ctx, model.Notice{Action: model.ActionCancelEditing}))
	require.Eventually(t, func() bool { return dev.count() == 2 }, time.Second, 5*time.Millisecond)

	dev.mu.Lock()
	assert.Equal(t, "startEditing", dev.received[0]["action"])
	assert.Equal(t, "Veg", dev.received[0]["scheduleId"])
	assert.Equal(t, "updatePending", dev.received[1]["action"])
	dev.mu.Unlock()

	require.NoError(t, server.WriteJSON(map[string]any{"type": "pendingSchedule", "isPending": true, "data": draft}))
	require.NoError(t, server.WriteJSON(map[string]any{"type": "scheduleUpdate"}))

	got := []model.Notice{<-notices, <-notices}
	assert.Equal(t, model.ActionPendingSchedule, got[0].Action)
	require.NotNil(t, got[0].Data)
	assert.Equal(t, "Veg", got[0].Data.Name)
	assert.Equal(t, model.ActionScheduleSaved, got[1].Action)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("device channel did not stop")
	}
}

func TestDeviceChannelReconnects(t *testing.T) {
	dev := &fakeDevice{conns: make(chan *websocket.Conn, 4)}
	srv := httptest.NewServer(dev)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go NewDeviceChannel(wsURL(srv), nil).Run(ctx)

	first := <-dev.conns
	first.Close()

	select {
	case <-dev.conns:
	case <-time.After(3 * time.Second):
		t.Fatal("device channel did not reconnect")
	}
}

func TestMQTTRetainsOpenDrafts(t *testing.T) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}
	pub, err := NewMQTT(MQTTOptions{Broker: broker, ClientID: "irrigo-test-pub", DeviceID: "test", Timeout: time.Second})
	if err != nil {
		t.Skipf("MQTT broker not available, skipping test: %v", err)
	}
	defer pub.Close()
	sub, err := NewMQTT(MQTTOptions{Broker: broker, ClientID: "irrigo-test-sub", DeviceID: "test", Timeout: time.Second})
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan model.Notice, 4)
	require.NoError(t, sub.Subscribe(func(n model.Notice) { received <- n }))

	draft := model.Schedule{Name: "Veg"}
	require.NoError(t, pub.Publish(context.Background(), model.Notice{Action: model.ActionUpdatePending, ClientID: "tab/1", Data: &draft}))

	select {
	case n := <-received:
		assert.Equal(t, model.ActionUpdatePending, n.Action)
		assert.Equal(t, "irrigo-test-pub", n.Origin)
	case <-time.After(3 * time.Second):
		t.Fatal("notice not delivered")
	}
	require.NoError(t, pub.Publish(context.Background(), model.Notice{Action: model.ActionCancelEditing, ClientID: "tab/1"}))
	assert.Equal(t, "irrigo/test/pending/tab_1", pub.pendingTopic("tab/1"))
}
