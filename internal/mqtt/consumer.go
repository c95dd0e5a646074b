package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ultrasense/ultrasense-go/internal/events"
)

// Consumer publishes bus events as JSON. Detection events go to the
// configured topic, status events to the "/status" subtopic.
type Consumer struct {
	client Client
	topic  string
}

// NewConsumer creates a bus consumer publishing through the given client.
func NewConsumer(client Client, topic string) *Consumer {
	return &Consumer{client: client, topic: topic}
}

// Name implements events.Consumer.
func (c *Consumer) Name() string { return "mqtt" }

// ProcessEvent implements events.Consumer. A disconnected broker makes the
// publish fail fast; the bus logs the error and the pipeline moves on.
func (c *Consumer) ProcessEvent(event events.Event) error {
	topic := c.topic
	if event.GetType() == events.TypeStatus {
		topic += "/status"
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", event.GetType(), err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Publish(ctx, topic, string(payload))
}
