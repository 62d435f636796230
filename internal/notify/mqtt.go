package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	mqttQoS          = 1
	mqttDisconnectMs = 250
)

// MQTTOptions configures the broker connection. Topics are
// <Prefix>/<DeviceID>/events for every notice and
// <Prefix>/<DeviceID>/pending/<client> for the retained draft of each client.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Prefix   string
	DeviceID string
	Timeout  time.Duration
}

// MQTT mirrors session activity onto a broker so other consoles can see which
// schedule is being edited. Open drafts are retained; a commit or cancel
// clears the retained message.
type MQTT struct {
	client mqtt.Client
	opts   MQTTOptions
}

func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.Prefix == "" {
		opts.Prefix = "irrigo"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		log.Debug().Str("topic", msg.Topic()).Int("bytes", len(msg.Payload())).Msg("unexpected mqtt message")
	})
	co.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", opts.Broker).Msg("connected to MQTT broker")
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		client.Disconnect(mqttDisconnectMs)
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timeout", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return &MQTT{client: client, opts: opts}, nil
}

func (m *MQTT) eventsTopic() string {
	return fmt.Sprintf("%s/%s/events", m.opts.Prefix, m.opts.DeviceID)
}

func (m *MQTT) pendingTopic(clientID string) string {
	return fmt.Sprintf("%s/%s/pending/%s", m.opts.Prefix, m.opts.DeviceID, sanitizeTopic(clientID))
}

func (m *MQTT) Publish(_ context.Context, n model.Notice) error {
	n.Origin = m.opts.ClientID
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := m.publish(m.eventsTopic(), false, payload); err != nil {
		return err
	}

	switch n.Action {
	case model.ActionStartCreating, model.ActionStartEditing, model.ActionUpdatePending:
		return m.publish(m.pendingTopic(n.ClientID), true, payload)
	case model.ActionCancelEditing, model.ActionScheduleSaved:
		// An empty retained payload removes the retained draft.
		return m.publish(m.pendingTopic(n.ClientID), true, []byte{})
	}
	return nil
}

func (m *MQTT) publish(topic string, retained bool, payload []byte) error {
	token := m.client.Publish(topic, mqttQoS, retained, payload)
	if !token.WaitTimeout(m.opts.Timeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe hands notices published by other consoles to handle. Notices this
// client published itself are skipped.
func (m *MQTT) Subscribe(handle func(model.Notice)) error {
	token := m.client.Subscribe(m.eventsTopic(), mqttQoS, func(_ mqtt.Client, msg mqtt.Message) {
		var n model.Notice
		if err := json.Unmarshal(msg.Payload(), &n); err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping malformed notice")
			return
		}
		if n.Origin == m.opts.ClientID {
			return
		}
		handle(n)
	})
	if !token.WaitTimeout(m.opts.Timeout) {
		return fmt.Errorf("subscribe %s: timeout", m.eventsTopic())
	}
	return token.Error()
}

func (m *MQTT) Close() {
	m.client.Disconnect(mqttDisconnectMs)
	log.Info().Msg("MQTT client disconnected")
}

func sanitizeTopic(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
