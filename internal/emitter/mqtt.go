// Package emitter maintains the MQTT session and publishes the device's
// outbound messages.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/visiona/argus/internal/config"
)

// ErrNotConnected is returned when a publish is attempted without a live
// broker session
var ErrNotConnected = errors.New("mqtt not connected")

// ErrConnect wraps failures to establish the broker session
var ErrConnect = errors.New("mqtt connect failed")

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// MQTTEmitter publishes frames, analytics, and alerts to the MQTT broker
type MQTTEmitter struct {
	cfg    config.MQTTConfig
	Client mqtt.Client // Exported for control plane

	mu                sync.RWMutex
	published         map[string]uint64 // count per topic
	errors            uint64
	connected         bool
	disconnectedSince time.Time
}

// New creates an emitter for the given broker settings. Connect must be
// called before publishing.
func New(cfg config.MQTTConfig) *MQTTEmitter {
	return &MQTTEmitter{
		cfg:       cfg,
		published: make(map[string]uint64),
	}
}

// Connect dials the broker once. It does not retry; callers wanting bounded
// startup attempts wrap it with the retry package. Once established, the
// session auto-reconnects on its own.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.disconnectedSince = time.Time{}
		e.mu.Unlock()
		slog.Info("mqtt connection established",
			"broker", e.cfg.Broker,
			"client_id", e.cfg.ClientID)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.disconnectedSince = time.Now()
		e.mu.Unlock()
		slog.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.Broker,
			"max_retry_interval", "30s")
	}

	e.Client = mqtt.NewClient(opts)

	slog.Info("connecting to mqtt broker", "broker", e.cfg.Broker)

	token := e.Client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: timeout after %s", ErrConnect, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	e.mu.Lock()
	e.connected = true
	e.disconnectedSince = time.Time{}
	e.mu.Unlock()

	return nil
}

// Publish sends payload to topic with the given QoS. Failures are counted
// and returned; the caller decides whether they are fatal.
func (e *MQTTEmitter) Publish(topic string, payload []byte, qos byte) error {
	if !e.isConnected() {
		e.recordError()
		return fmt.Errorf("publish to %s: %w", topic, ErrNotConnected)
	}

	token := e.Client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.recordError()
		return fmt.Errorf("publish to %s timed out after %s", topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		e.recordError()
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	slog.Debug("message published",
		"topic", topic,
		"qos", qos,
		"size", len(payload),
	)

	return nil
}

// Disconnect closes the MQTT connection with a short grace period for
// in-flight messages
func (e *MQTTEmitter) Disconnect() error {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250)
		slog.Info("mqtt disconnected")
	}

	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()

	return nil
}

// Connected reports whether the broker session is currently up
func (e *MQTTEmitter) Connected() bool {
	return e.isConnected()
}

// DisconnectedFor returns how long the session has been down, or zero while
// connected. The tick loop uses this to decide when a lost connection stops
// being tolerable.
func (e *MQTTEmitter) DisconnectedFor() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.connected || e.disconnectedSince.IsZero() {
		return 0
	}
	return time.Since(e.disconnectedSince)
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64)
	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) recordError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
