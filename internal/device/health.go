package device

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HealthStatus represents the health state of the device
type HealthStatus struct {
	Status          string  `json:"status"` // "healthy", "degraded", "unhealthy"
	UptimeSeconds   int64   `json:"uptime_seconds"`
	State           string  `json:"state"`
	Paused          bool    `json:"paused"`
	MQTTConnected   bool    `json:"mqtt_connected"`
	FramesProcessed uint64  `json:"frames_processed"`
	AlertsRaised    uint64  `json:"alerts_raised"`
	PublishErrors   uint64  `json:"publish_errors"`
	AchievedFPS     float64 `json:"achieved_fps"`
}

// HealthCheck returns the current health status of the device
func (d *Device) HealthCheck() HealthStatus {
	snap := d.Snapshot()
	pacing := d.pacer.Stats()

	status := HealthStatus{
		Status:          "healthy",
		State:           d.State().String(),
		Paused:          d.paused.Load(),
		FramesProcessed: snap.FramesProcessed,
		AlertsRaised:    snap.AlertsRaised,
		PublishErrors:   snap.PublishErrors,
		AchievedFPS:     pacing.AchievedFPS,
	}

	if !snap.StartedAt.IsZero() {
		status.UptimeSeconds = int64(time.Since(snap.StartedAt).Seconds())
	}

	if d.pub != nil && d.pub.Connected() {
		status.MQTTConnected = true
	}

	// Determine overall health status
	if d.State() != StateRunning {
		status.Status = "unhealthy"
	} else if !status.MQTTConnected {
		status.Status = "degraded"
	}

	return status
}

// LivenessHandler handles /health/live (simple liveness check)
// Returns 200 if the device process is alive
func (d *Device) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := d.HealthCheck()
	response := map[string]interface{}{
		"status": "alive",
		"uptime": health.UptimeSeconds,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ReadinessHandler handles /health/ready (detailed readiness check)
// Returns 200 only once the loop is running with a live broker session
func (d *Device) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := d.HealthCheck()

	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(health)
}

// StatusHandler handles /status with the same full status document the
// control plane's get_status command returns
func (d *Device) StatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(d.statusData())
}

// previewHandler streams the published frames as MJPEG. Each connected
// client advances at its own pace; only the newest frame is ever sent.
func (d *Device) previewHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	var seq uint64
	for {
		data, next, ok := d.preview.NextContext(r.Context(), seq)
		if !ok {
			return
		}
		seq = next

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}

// StartHealthServer starts the HTTP health server on the configured port.
// This runs in a separate goroutine and does not block; Shutdown stops it.
func (d *Device) StartHealthServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health/live", d.LivenessHandler)
	mux.HandleFunc("/health/ready", d.ReadinessHandler)
	mux.HandleFunc("/status", d.StatusHandler)
	mux.Handle("/metrics", d.metrics.Handler())

	endpoints := []string{"/health/live", "/health/ready", "/status", "/metrics"}
	if d.cfg.Health.Preview {
		mux.HandleFunc("/preview", d.previewHandler)
		endpoints = append(endpoints, "/preview")
	}

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", d.cfg.Health.Port),
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		// WriteTimeout stays zero so /preview can stream indefinitely
		IdleTimeout: 60 * time.Second,
	}
	d.healthSrv = server

	slog.Info("starting health server",
		"port", d.cfg.Health.Port,
		"endpoints", endpoints,
	)

	// Start server in goroutine (non-blocking)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server failed", "error", err)
		}
	}()

	return nil
}
