// Package kafka wraps segmentio/kafka-go writers used to publish JSON events.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrDisabled is returned when no brokers are configured.
var ErrDisabled = errors.New("kafka disabled")

// Client holds the broker addresses of a Kafka cluster.
type Client struct {
	Brokers []string
}

// NewClient parses a comma separated broker list. Empty entries are skipped.
func NewClient(brokersCSV string) *Client {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

// Enabled reports whether any broker is configured.
func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter returns a writer keyed by message key so events of one location
// stay ordered within a partition.
func (c *Client) NewWriter(topic string) (*kafka.Writer, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}, nil
}

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// PublishJSON encodes payload as JSON and writes it under key.
func PublishJSON(ctx context.Context, writer MessageWriter, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()})
}
