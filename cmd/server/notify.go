package main

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/notify"
	"github.com/Nixie-Tech-LLC/irrigo/internal/redis"
)

// Notifiers is every live channel the console talks on.
type Notifiers struct {
	Hub     *notify.Hub
	MQTT    *notify.MQTT
	Device  *notify.DeviceChannel
	Cluster *redis.Notifier

	handle func(model.Notice)
}

// InitNotifiers connects the sinks. Nothing is received until Listen.
func InitNotifiers(env Environment, rdb *goredis.Client) *Notifiers {
	n := &Notifiers{Hub: notify.NewHub()}
	n.Hub.Start()

	origin := instanceID(env)

	if env.MQTTBroker != "" {
		m, err := notify.NewMQTT(notify.MQTTOptions{
			Broker:   env.MQTTBroker,
			ClientID: origin,
			Prefix:   env.MQTTTopicPrefix,
			DeviceID: env.DeviceID,
		})
		if err != nil {
			log.Error().Err(err).Msg("MQTT disabled")
		} else {
			n.MQTT = m
		}
	}
	if env.DeviceWSURL != "" {
		n.Device = notify.NewDeviceChannel(env.DeviceWSURL, n.remote)
	}
	if rdb != nil {
		n.Cluster = redis.NewNotifier(rdb, origin)
	}
	return n
}

// Publisher fans out to every configured sink plus local, which routes the
// notice to the console's own sessions.
func (n *Notifiers) Publisher(local notify.Publisher) notify.Multi {
	sinks := notify.Multi{n.Hub, local}
	if n.MQTT != nil {
		sinks = append(sinks, n.MQTT)
	}
	if n.Device != nil {
		sinks = append(sinks, n.Device)
	}
	if n.Cluster != nil {
		sinks = append(sinks, n.Cluster)
	}
	return sinks
}

// Listen starts receiving. Notices from the device, the broker or other
// instances go to handle and are echoed to browsers.
func (n *Notifiers) Listen(ctx context.Context, handle func(model.Notice)) {
	n.handle = handle

	if n.MQTT != nil {
		if err := n.MQTT.Subscribe(n.remote); err != nil {
			log.Error().Err(err).Msg("MQTT subscribe failed")
		}
	}
	if n.Device != nil {
		go n.Device.Run(ctx)
	}
	if n.Cluster != nil {
		go func() {
			if err := n.Cluster.Subscribe(ctx, n.remote); err != nil {
				log.Error().Err(err).Msg("redis notice subscription ended")
			}
		}()
	}
}

func (n *Notifiers) remote(notice model.Notice) {
	if n.handle == nil {
		return
	}
	n.handle(notice)
	_ = n.Hub.Publish(context.Background(), notice)
}

func (n *Notifiers) Close() {
	if n.MQTT != nil {
		n.MQTT.Close()
	}
	n.Hub.Stop()
}

func instanceID(env Environment) string {
	host, err := os.Hostname()
	if err != nil {
		host = "console"
	}
	return fmt.Sprintf("irrigo-%s-%s-%d", env.DeviceID, host, os.Getpid())
}
