package config

import (
	"fmt"
	"regexp"
)

var deviceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks invariants and derives dependent defaults. It mutates cfg
// to fill derived fields (client ID, control topics, loop housekeeping).
func Validate(cfg *Config) error {
	if cfg.Device.ID == "" {
		return fmt.Errorf("%w: device.id is required", ErrInvalid)
	}
	if !deviceIDPattern.MatchString(cfg.Device.ID) {
		return fmt.Errorf("%w: device.id must match pattern [a-z0-9-]+", ErrInvalid)
	}
	if cfg.Device.StatsEvery <= 0 {
		cfg.Device.StatsEvery = 20
	}
	if cfg.Device.ShutdownTimeoutS <= 0 {
		cfg.Device.ShutdownTimeoutS = 5
	}

	if cfg.Frame.Width <= 0 {
		return fmt.Errorf("%w: frame.width must be > 0, got %d", ErrInvalid, cfg.Frame.Width)
	}
	if cfg.Frame.Height <= 0 {
		return fmt.Errorf("%w: frame.height must be > 0, got %d", ErrInvalid, cfg.Frame.Height)
	}

	if cfg.Camera.Objects < 0 {
		return fmt.Errorf("%w: camera.objects must be >= 0, got %d", ErrInvalid, cfg.Camera.Objects)
	}

	if cfg.Stream.FPS <= 0 {
		return fmt.Errorf("%w: stream.fps must be > 0, got %d", ErrInvalid, cfg.Stream.FPS)
	}
	if cfg.Stream.JPEGQuality < 1 || cfg.Stream.JPEGQuality > 100 {
		return fmt.Errorf("%w: stream.jpeg_quality must be in [1, 100], got %d",
			ErrInvalid, cfg.Stream.JPEGQuality)
	}

	if cfg.Alerts.ConfidenceThreshold < 0 || cfg.Alerts.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: alerts.confidence_threshold must be in [0.0, 1.0], got %f",
			ErrInvalid, cfg.Alerts.ConfidenceThreshold)
	}

	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required", ErrInvalid)
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.Device.ID
	}
	if cfg.MQTT.ConnectAttempts <= 0 {
		cfg.MQTT.ConnectAttempts = 5
	}
	if cfg.MQTT.ConnectBackoffS <= 0 {
		cfg.MQTT.ConnectBackoffS = 1
	}
	if cfg.MQTT.ReconnectGraceS <= 0 {
		cfg.MQTT.ReconnectGraceS = 60
	}

	// Set default topics if not provided
	if cfg.MQTT.Topics.Video == "" {
		cfg.MQTT.Topics.Video = "video/stream"
	}
	if cfg.MQTT.Topics.Analytics == "" {
		cfg.MQTT.Topics.Analytics = "analytics/data"
	}
	if cfg.MQTT.Topics.Alerts == "" {
		cfg.MQTT.Topics.Alerts = "analytics/alerts"
	}
	if cfg.MQTT.Topics.Control == "" {
		cfg.MQTT.Topics.Control = fmt.Sprintf("argus/control/%s", cfg.Device.ID)
	}
	if cfg.MQTT.Topics.ControlResponse == "" {
		cfg.MQTT.Topics.ControlResponse = cfg.MQTT.Topics.Control + "/response"
	}

	// Set default QoS if not provided
	if cfg.MQTT.QoS == nil {
		cfg.MQTT.QoS = map[string]byte{
			"video":     0,
			"analytics": 0,
			"alerts":    1,
			"control":   1,
		}
	}
	for stream, qos := range cfg.MQTT.QoS {
		if qos > 2 {
			return fmt.Errorf("%w: mqtt.qos.%s must be 0, 1, or 2, got %d", ErrInvalid, stream, qos)
		}
	}

	if cfg.Health.Port <= 0 {
		cfg.Health.Port = 8089
	}
	if cfg.Health.Port > 65535 {
		return fmt.Errorf("%w: health.port must be <= 65535, got %d", ErrInvalid, cfg.Health.Port)
	}

	return nil
}
