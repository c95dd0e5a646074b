// Package mqtt publishes detection and status events to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// Client is the broker-facing surface used by the event consumer.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic, payload string) error
	IsConnected() bool
	Disconnect()
}

// Config holds the broker connection parameters.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string
	Retain            bool
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	ReconnectCooldown time.Duration
}

type client struct {
	config          Config
	internalClient  paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	logger          *slog.Logger
}

// NewClient creates an MQTT client from the realtime settings.
func NewClient(settings *conf.Settings) Client {
	return &client{
		config: Config{
			Broker:            settings.Realtime.MQTT.Broker,
			ClientID:          settings.Main.Name,
			Username:          settings.Realtime.MQTT.Username,
			Password:          settings.Realtime.MQTT.Password,
			Topic:             settings.Realtime.MQTT.Topic,
			Retain:            settings.Realtime.MQTT.Retain,
			ConnectTimeout:    30 * time.Second,
			PublishTimeout:    10 * time.Second,
			ReconnectCooldown: 5 * time.Second,
		},
		logger: logging.ForService("mqtt"),
	}
}

// Connect establishes the broker connection. Hostnames are resolved first so
// configuration typos surface as clear DNS errors.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < c.config.ReconnectCooldown {
		return fmt.Errorf("connection attempt too recent, last attempt was %v ago", time.Since(c.lastConnAttempt))
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			if dnsErr, ok := err.(*net.DNSError); ok {
				return dnsErr
			}
			return fmt.Errorf("failed to resolve hostname %s: %w", host, err)
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	return nil
}

// Publish sends a payload to the given topic with QoS 0.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient == nil || !c.internalClient.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)

	timeout := c.config.PublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish error: %w", err)
	}
	return nil
}

// IsConnected reports whether the client holds a live broker connection.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the broker connection.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient != nil {
		c.internalClient.Disconnect(250)
	}
}

func (c *client) onConnect(paho.Client) {
	c.logger.Info("connected to MQTT broker", "broker", c.config.Broker)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("lost connection to MQTT broker", "broker", c.config.Broker, "error", err)
}
