// Package config loads and validates the device configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete device configuration
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Frame  FrameConfig  `yaml:"frame"`
	Camera CameraConfig `yaml:"camera"`
	Stream StreamConfig `yaml:"stream"`
	Alerts AlertsConfig `yaml:"alerts"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Health HealthConfig `yaml:"health"`
}

// DeviceConfig identifies the device and sets loop housekeeping
type DeviceConfig struct {
	ID               string `yaml:"id"`
	Site             string `yaml:"site"`
	StatsEvery       int    `yaml:"stats_every"`        // log a stats line every N frames
	ShutdownTimeoutS int    `yaml:"shutdown_timeout_s"` // graceful shutdown timeout in seconds
}

// FrameConfig sets the generated frame dimensions
type FrameConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// CameraConfig controls the simulated scene
type CameraConfig struct {
	Objects   int   `yaml:"objects"`   // population size; 0 is an empty scene
	Seed      int64 `yaml:"seed"`      // 0 seeds from the clock
	Reshuffle bool  `yaml:"reshuffle"` // rebuild the population every frame
}

// StreamConfig controls the published video stream
type StreamConfig struct {
	FPS         int  `yaml:"fps"`
	JPEGQuality int  `yaml:"jpeg_quality"`
	Annotate    bool `yaml:"annotate"` // draw detection boxes and the HUD
}

// AlertsConfig defines the alert policy
type AlertsConfig struct {
	Objects             []string `yaml:"objects"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
}

// MQTTConfig contains broker settings
type MQTTConfig struct {
	Broker          string          `yaml:"broker"`
	ClientID        string          `yaml:"client_id"`          // defaults to device.id
	ConnectAttempts int             `yaml:"connect_attempts"`   // startup attempts before giving up
	ConnectBackoffS int             `yaml:"connect_backoff_s"`  // initial backoff, doubling up to 30s
	ReconnectGraceS int             `yaml:"reconnect_grace_s"`  // tolerated downtime before the loop gives up
	Topics          MQTTTopics      `yaml:"topics"`
	QoS             map[string]byte `yaml:"qos"`
}

// MQTTTopics contains the publish and control topics
type MQTTTopics struct {
	Video           string `yaml:"video"`
	Analytics       string `yaml:"analytics"`
	Alerts          string `yaml:"alerts"`
	Control         string `yaml:"control"`
	ControlResponse string `yaml:"control_response"`
}

// QoSFor returns the configured QoS for a message stream, defaulting to 0
func (m *MQTTConfig) QoSFor(stream string) byte {
	if qos, ok := m.QoS[stream]; ok {
		return qos
	}
	return 0
}

// HealthConfig controls the local HTTP endpoint
type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	Preview bool `yaml:"preview"` // expose the MJPEG preview endpoint
}

// Default returns the built-in configuration: a 640x480 stream at 8 fps
// with five objects, publishing to a broker on localhost
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:               "edge-device-01",
			StatsEvery:       20,
			ShutdownTimeoutS: 5,
		},
		Frame: FrameConfig{Width: 640, Height: 480},
		Camera: CameraConfig{
			Objects: 5,
		},
		Stream: StreamConfig{
			FPS:         8,
			JPEGQuality: 75,
			Annotate:    true,
		},
		Alerts: AlertsConfig{
			Objects:             []string{"person", "car", "truck", "bus"},
			ConfidenceThreshold: 0.5,
		},
		MQTT: MQTTConfig{
			Broker:          "localhost:1883",
			ConnectAttempts: 5,
			ConnectBackoffS: 1,
			ReconnectGraceS: 60,
			Topics: MQTTTopics{
				Video:     "video/stream",
				Analytics: "analytics/data",
				Alerts:    "analytics/alerts",
			},
			QoS: map[string]byte{
				"video":     0,
				"analytics": 0,
				"alerts":    1,
				"control":   1,
			},
		},
		Health: HealthConfig{
			Enabled: true,
			Port:    8089,
			Preview: true,
		},
	}
}

// Load reads a YAML configuration file over the defaults and validates the
// result. Keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalid, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
