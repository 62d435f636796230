package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

func testClient(t *testing.T) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := InitRedis(addr, os.Getenv("REDIS_USERNAME"), os.Getenv("REDIS_PASSWORD"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available, skipping test: %v", err)
	}
}

func TestDraftsRoundTrip(t *testing.T) {
	testClient(t)
	ctx := context.Background()
	drafts := NewDrafts(Rdb, time.Minute)
	client := "test-" + time.Now().Format("150405.000000")

	got, err := drafts.Load(ctx, client)
	require.NoError(t, err)
	assert.Nil(t, got)

	d := model.Draft{ClientID: client, Mode: model.ModeCreating, Index: -1,
		Schedule: model.Schedule{Name: "Seedlings", LightsOnTime: "05:00", LightsOffTime: "23:00", Events: []model.Event{}}}
	require.NoError(t, drafts.Save(ctx, d))

	got, err = drafts.Load(ctx, client)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Seedlings", got.Schedule.Name)
	assert.Equal(t, model.ModeCreating, got.Mode)

	ttl, err := Rdb.TTL(ctx, draftPrefix+client).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, drafts.Clear(ctx, client))
	got, err = drafts.Load(ctx, client)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNotifierDeliversToSubscribers(t *testing.T) {
	testClient(t)
	pub := NewNotifier(Rdb, "console-a")
	sub := NewNotifier(Rdb, "console-b")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	own := make(chan model.Notice, 16)
	received := make(chan model.Notice, 16)
	go func() {
		_ = pub.Subscribe(ctx, func(notice model.Notice) { own <- notice })
	}()
	go func() {
		_ = sub.Subscribe(ctx, func(notice model.Notice) { received <- notice })
	}()

	require.Eventually(t, func() bool {
		_ = pub.Publish(ctx, model.Notice{Action: model.ActionCancelEditing, Session: "s1"})
		select {
		case got := <-received:
			return got.Session == "s1" && got.Origin == "console-a"
		default:
			return false
		}
	}, 2*time.Second, 50*time.Millisecond)
	assert.Empty(t, own)
}
