package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jgoulah/devusage/internal/config"
	"github.com/jgoulah/devusage/pkg/models"
)

const publishTimeout = 10 * time.Second

// Client is the subset of mqtt.Client the publisher uses
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher pushes computed rankings to an MQTT broker
type Publisher struct {
	client      Client
	topicPrefix string
}

// RankingPayload is the retained message body for a day's ranking
type RankingPayload struct {
	Date        string                 `json:"date"`
	GeneratedAt string                 `json:"generated_at"`
	Devices     []models.DeviceAverage `json:"devices"`
}

// New connects to the broker described by cfg
func New(cfg config.MQTTConfig, topicPrefix string) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	// unique per run so concurrent publishers don't kick each other off
	opts.SetClientID("devusage-" + uuid.NewString())
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return NewWithClient(client, topicPrefix), nil
}

// NewWithClient wraps an already connected client
func NewWithClient(client Client, topicPrefix string) *Publisher {
	return &Publisher{client: client, topicPrefix: strings.TrimSuffix(topicPrefix, "/")}
}

// RankingTopic returns the topic a date's ranking is published on
func (p *Publisher) RankingTopic(date string) string {
	return fmt.Sprintf("%s/top5/%s", p.topicPrefix, date)
}

// PublishRanking publishes the ranking for date as a retained JSON message
func (p *Publisher) PublishRanking(date string, devices []models.DeviceAverage) error {
	if devices == nil {
		devices = []models.DeviceAverage{}
	}
	payload := RankingPayload{
		Date:        date,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Devices:     devices,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(p.RankingTopic(date), 1, true, body)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out after %s", p.RankingTopic(date), publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.RankingTopic(date), err)
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
