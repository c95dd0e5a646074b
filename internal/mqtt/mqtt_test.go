package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/events"
)

// fakeClient records published messages.
type fakeClient struct {
	mu       sync.Mutex
	messages map[string][]string
	fail     bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{messages: make(map[string][]string)}
}

func (f *fakeClient) Connect(context.Context) error { return nil }
func (f *fakeClient) IsConnected() bool             { return true }
func (f *fakeClient) Disconnect()                   {}

func (f *fakeClient) Publish(_ context.Context, topic, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return assert.AnError
	}
	f.messages[topic] = append(f.messages[topic], payload)
	return nil
}

func (f *fakeClient) published(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages[topic]...)
}

func TestConsumerPublishesDetectionJSON(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	consumer := NewConsumer(client, "ultrasense/room1")

	event := events.NewDetectionEvent(events.DetectionEvent{
		DistanceCm:   102,
		IsActive:     true,
		Label:        "human",
		Confidence:   0.97,
		ActuatorIsOn: true,
	})
	require.NoError(t, consumer.ProcessEvent(event))

	msgs := client.published("ultrasense/room1")
	require.Len(t, msgs, 1)

	var decoded events.DetectionEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "human", decoded.Label)
	assert.True(t, decoded.ActuatorIsOn)
	assert.InDelta(t, 102.0, decoded.DistanceCm, 0.001)
}

func TestConsumerRoutesStatusToSubtopic(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	consumer := NewConsumer(client, "ultrasense/room1")

	require.NoError(t, consumer.ProcessEvent(
		events.NewStatusEvent(events.StatusDegraded, "timeouts", 5)))

	require.Empty(t, client.published("ultrasense/room1"))
	msgs := client.published("ultrasense/room1/status")
	require.Len(t, msgs, 1)

	var decoded events.StatusEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &decoded))
	assert.Equal(t, events.StatusDegraded, decoded.Kind)
	assert.Equal(t, 5, decoded.ConsecutiveTimeouts)
}

func TestConsumerPropagatesPublishError(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.fail = true
	consumer := NewConsumer(client, "ultrasense/room1")

	err := consumer.ProcessEvent(events.NewStatusEvent(events.StatusStopped, "", 0))
	assert.Error(t, err)
}

func TestClientPublishRequiresConnection(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Main.Name = "ultrasense-test"
	settings.Realtime.MQTT.Broker = "tcp://127.0.0.1:1883"
	settings.Realtime.MQTT.Topic = "ultrasense"

	c := NewClient(settings)
	err := c.Publish(context.Background(), "ultrasense", "{}")
	assert.Error(t, err, "publish before connect fails fast")
	assert.False(t, c.IsConnected())
}

func TestClientConnectRejectsBadBrokerURL(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Realtime.MQTT.Broker = "://not-a-url"

	c := NewClient(settings)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, c.Connect(ctx))
}
