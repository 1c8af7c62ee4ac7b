// Package alert evaluates detections against the configured label and
// confidence policy and shapes the outbound alert events.
package alert

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/visiona/argus/internal/types"
)

// Policy decides which detections escalate to alerts. A detection qualifies
// when its label is in the watched set and its confidence reaches the
// threshold. Policies are immutable after construction.
type Policy struct {
	threshold float64
	labels    map[string]struct{}
}

// NewPolicy builds a policy from the watched labels and minimum confidence.
// Label matching is case-insensitive.
func NewPolicy(labels []string, threshold float64) *Policy {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[strings.ToLower(l)] = struct{}{}
	}
	return &Policy{threshold: threshold, labels: set}
}

// Matches reports whether a single detection crosses the policy
func (p *Policy) Matches(det types.Detection) bool {
	if _, ok := p.labels[strings.ToLower(det.Label)]; !ok {
		return false
	}
	return det.Confidence >= p.threshold
}

// Evaluate returns one alert event per qualifying detection, preserving
// detection order
func (p *Policy) Evaluate(deviceID string, ts time.Time, dets []types.Detection) []types.AlertEvent {
	var alerts []types.AlertEvent
	for _, det := range dets {
		if !p.Matches(det) {
			continue
		}
		alerts = append(alerts, types.AlertEvent{
			DeviceID:   deviceID,
			Timestamp:  ts,
			Type:       types.AlertTypeDetection,
			Object:     det.Label,
			Confidence: det.Confidence,
			Message:    Message(det.Label, det.Confidence),
		})
	}
	return alerts
}

// Message formats the human-readable alert line, for example
// "ALERT: PERSON detected with 93% confidence!"
func Message(label string, confidence float64) string {
	return fmt.Sprintf("ALERT: %s detected with %d%% confidence!",
		strings.ToUpper(label), int(math.Round(confidence*100)))
}
