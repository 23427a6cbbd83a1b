package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTOptions configures NewMQTT.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the prefix; events go to <Topic>/<prayer>.
	Topic string
	QoS   byte
}

// publisher is the part of mqtt.Client the notifier uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes events as JSON to a broker, e.g. for masjid displays.
type MQTT struct {
	client publisher
	topic  string
	qos    byte
	close  func()
}

// NewMQTT connects to the broker.
func NewMQTT(opts MQTTOptions, log zerolog.Logger) (*MQTT, error) {
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetUsername(opts.Username)
	co.SetPassword(opts.Password)
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(10 * time.Second)
	co.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", opts.Broker).Msg("connected to MQTT broker")
	}
	co.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTT{
		client: client,
		topic:  opts.Topic,
		qos:    opts.QoS,
		close:  func() { client.Disconnect(250) },
	}, nil
}

// Topic returns the topic an event for the named prayer is published on.
func (m *MQTT) Topic(name string) string {
	return strings.TrimSuffix(m.topic, "/") + "/" + strings.ToLower(name)
}

// OnPrayerTimeReached implements Notifier.
func (m *MQTT) OnPrayerTimeReached(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	token := m.client.Publish(m.Topic(ev.Prayer), m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Prayer, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.close != nil {
		m.close()
	}
}
