package types

import (
	"encoding/json"
	"time"
)

// AlertTypeDetection marks alerts raised by the label/confidence policy
const AlertTypeDetection = "detection"

// FrameAnalytics is the per-tick record published on the analytics topic.
// Detections preserve the order the camera emitted them in.
type FrameAnalytics struct {
	DeviceID    string      `json:"device_id"`
	Timestamp   time.Time   `json:"timestamp"`
	FrameID     uint64      `json:"frame_id"`
	ObjectCount int         `json:"object_count"`
	Detections  []Detection `json:"detections"`
}

// ToJSON serializes the record for publishing
func (a *FrameAnalytics) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// AlertEvent is published on the alerts topic when a detection crosses the
// configured policy
type AlertEvent struct {
	DeviceID   string    `json:"device_id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Object     string    `json:"object"`
	Confidence float64   `json:"confidence"`
	Message    string    `json:"message"`
}

// ToJSON serializes the event for publishing
func (a *AlertEvent) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}
