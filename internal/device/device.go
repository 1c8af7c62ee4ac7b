// Package device runs the capture loop: every tick generates a frame,
// annotates and encodes it, publishes video, analytics, and alerts over
// MQTT, and keeps the control plane and HTTP health surface current.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/visiona/argus/internal/alert"
	"github.com/visiona/argus/internal/camera"
	"github.com/visiona/argus/internal/config"
	"github.com/visiona/argus/internal/control"
	"github.com/visiona/argus/internal/emitter"
	"github.com/visiona/argus/internal/encoder"
	"github.com/visiona/argus/internal/metrics"
	"github.com/visiona/argus/internal/overlay"
	"github.com/visiona/argus/internal/retry"
	"github.com/visiona/argus/internal/types"
)

// Stats are the loop counters, snapshotted under the device mutex
type Stats struct {
	FramesProcessed uint64
	AlertsRaised    uint64
	PublishErrors   uint64
	LastObjectCount int
	StartedAt       time.Time
}

// Device owns the capture loop and the components around it
type Device struct {
	cfg     *config.Config
	source  FrameSource
	pub     Publisher
	emitter *emitter.MQTTEmitter // nil when a Publisher is injected directly
	enc     *encoder.Encoder
	policy  *alert.Policy
	metrics *metrics.Metrics
	preview *frameMirror
	pacer   *Pacer
	control *control.Handler

	healthSrv *http.Server

	state  atomic.Int32
	paused atomic.Bool

	mu        sync.RWMutex
	stats     Stats
	running   bool
	stopped   bool
	cancelRun context.CancelFunc
}

// New builds a device from the validated configuration. Run starts it.
func New(cfg *config.Config) (*Device, error) {
	cam, err := camera.New(camera.Config{
		Width:     cfg.Frame.Width,
		Height:    cfg.Frame.Height,
		Objects:   cfg.Camera.Objects,
		Seed:      cfg.Camera.Seed,
		Reshuffle: cfg.Camera.Reshuffle,
	})
	if err != nil {
		return nil, err
	}

	em := emitter.New(cfg.MQTT)

	d := &Device{
		cfg:     cfg,
		source:  cam,
		pub:     em,
		emitter: em,
		enc:     encoder.New(cfg.Stream.JPEGQuality),
		policy:  alert.NewPolicy(cfg.Alerts.Objects, cfg.Alerts.ConfidenceThreshold),
		metrics: metrics.New(),
		preview: newFrameMirror(),
		pacer:   NewPacer(cfg.Stream.FPS),
	}
	d.state.Store(int32(StateInit))
	return d, nil
}

// Run connects to the broker, starts the control plane, and drives the tick
// loop until ctx is cancelled or a fatal error occurs. A cancelled context
// is a clean stop and returns nil.
func (d *Device) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("device already running")
	}
	d.running = true
	d.stats.StartedAt = time.Now()
	d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.cancelRun = cancel
	d.mu.Unlock()

	d.setState(StateConnecting)
	if err := d.connect(runCtx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if d.emitter != nil && d.emitter.Client != nil {
		d.control = control.NewHandler(&d.cfg.MQTT, d.emitter.Client, control.Callbacks{
			OnGetStatus: d.statusData,
			OnPause:     d.pause,
			OnResume:    d.resume,
			OnShutdown:  d.stopFromControl,
		})
		if err := d.control.Start(runCtx); err != nil {
			return fmt.Errorf("control plane start failed: %w", err)
		}
	}

	d.setState(StateRunning)
	d.metrics.SetConnected(d.pub.Connected())

	slog.Info("device running",
		"device_id", d.cfg.Device.ID,
		"fps", d.cfg.Stream.FPS,
		"frame_size", fmt.Sprintf("%dx%d", d.cfg.Frame.Width, d.cfg.Frame.Height),
		"objects", d.cfg.Camera.Objects,
		"annotate", d.cfg.Stream.Annotate,
	)

	err := d.tickLoop(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// connect dials the broker with bounded backoff
func (d *Device) connect(ctx context.Context) error {
	rc := retry.Config{
		MaxAttempts:  d.cfg.MQTT.ConnectAttempts,
		InitialDelay: time.Duration(d.cfg.MQTT.ConnectBackoffS) * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
	return retry.Do(ctx, rc, "mqtt connect", func() error {
		return d.pub.Connect(ctx)
	})
}

// tickLoop paces the capture loop. Each pass generates and publishes one
// frame unless the device is paused; a paused device sleeps through its
// ticks without advancing the frame counter.
func (d *Device) tickLoop(ctx context.Context) error {
	grace := time.Duration(d.cfg.MQTT.ReconnectGraceS) * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.paused.Load() {
			d.pacer.Wait(ctx, time.Now())
			continue
		}

		start := d.pacer.Begin()
		if err := d.tick(start); err != nil {
			return err
		}

		// Short broker outages ride on the client's auto-reconnect;
		// past the grace window the device gives up.
		if !d.pub.Connected() {
			if down := d.pub.DisconnectedFor(); down > grace {
				return fmt.Errorf("broker unreachable for %s (grace %s): %w",
					down.Round(time.Second), grace, emitter.ErrNotConnected)
			}
		}

		d.pacer.Wait(ctx, start)
	}
}

// tick produces and publishes one frame. Publish failures are recoverable;
// a generator or conversion failure aborts the loop.
func (d *Device) tick(start time.Time) error {
	frame, dets, err := d.source.NextFrame()
	if err != nil {
		return fmt.Errorf("frame generation failed: %w", err)
	}

	img, err := encoder.ToRGBA(&frame)
	if err != nil {
		return fmt.Errorf("frame conversion failed: %w", err)
	}

	if d.cfg.Stream.Annotate {
		overlay.Draw(img, dets, frame.ID, frame.Timestamp)
	}

	jpegData, err := d.enc.EncodeJPEG(img)
	if err != nil {
		slog.Warn("jpeg encode failed, skipping video frame",
			"frame_id", frame.ID,
			"error", err)
		jpegData = nil
	}

	if jpegData != nil {
		d.publishVideo(jpegData)
		d.preview.Set(jpegData)
	}

	d.publishAnalytics(&frame, dets)

	alerts := d.policy.Evaluate(d.cfg.Device.ID, frame.Timestamp, dets)
	d.publishAlerts(alerts)

	d.finishTick(start, frame.ID, len(dets), len(alerts))
	return nil
}

func (d *Device) publishVideo(jpegData []byte) {
	payload := encoder.Base64(jpegData)
	topic := d.cfg.MQTT.Topics.Video
	if err := d.pub.Publish(topic, payload, d.cfg.MQTT.QoSFor("video")); err != nil {
		d.publishFailed(topic, err)
	}
}

func (d *Device) publishAnalytics(frame *types.Frame, dets []types.Detection) {
	if dets == nil {
		dets = []types.Detection{}
	}

	doc := types.FrameAnalytics{
		DeviceID:    d.cfg.Device.ID,
		Timestamp:   frame.Timestamp,
		FrameID:     frame.ID,
		ObjectCount: len(dets),
		Detections:  dets,
	}
	payload, err := doc.ToJSON()
	if err != nil {
		slog.Warn("analytics encode failed", "frame_id", frame.ID, "error", err)
		return
	}

	topic := d.cfg.MQTT.Topics.Analytics
	if err := d.pub.Publish(topic, payload, d.cfg.MQTT.QoSFor("analytics")); err != nil {
		d.publishFailed(topic, err)
	}
}

func (d *Device) publishAlerts(alerts []types.AlertEvent) {
	topic := d.cfg.MQTT.Topics.Alerts
	for i := range alerts {
		payload, err := alerts[i].ToJSON()
		if err != nil {
			slog.Warn("alert encode failed", "object", alerts[i].Object, "error", err)
			continue
		}
		if err := d.pub.Publish(topic, payload, d.cfg.MQTT.QoSFor("alerts")); err != nil {
			d.publishFailed(topic, err)
		}
		slog.Info("alert raised",
			"object", alerts[i].Object,
			"confidence", alerts[i].Confidence,
			"message", alerts[i].Message,
		)
	}
}

func (d *Device) publishFailed(topic string, err error) {
	slog.Warn("publish failed", "topic", topic, "error", err)

	d.mu.Lock()
	d.stats.PublishErrors++
	d.mu.Unlock()
	d.metrics.PublishErrors.Add(1)
}

// finishTick updates counters, metrics, and the periodic stats line
func (d *Device) finishTick(start time.Time, frameID uint64, objects, alerts int) {
	d.mu.Lock()
	d.stats.FramesProcessed++
	d.stats.AlertsRaised += uint64(alerts)
	d.stats.LastObjectCount = objects
	frames := d.stats.FramesProcessed
	raised := d.stats.AlertsRaised
	d.mu.Unlock()

	pacing := d.pacer.Stats()
	d.metrics.FramesProcessed.Store(frames)
	d.metrics.AlertsRaised.Store(raised)
	d.metrics.ObjectsInView.Store(uint64(objects))
	d.metrics.SetAchievedFPS(pacing.AchievedFPS)
	d.metrics.SetConnected(d.pub.Connected())

	slog.Debug("frame published",
		"frame_id", frameID,
		"objects", objects,
		"alerts", alerts,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if every := d.cfg.Device.StatsEvery; every > 0 && frames%uint64(every) == 0 {
		slog.Info("stream stats",
			"frames", frames,
			"alerts", raised,
			"objects", objects,
			"achieved_fps", fmt.Sprintf("%.2f", pacing.AchievedFPS),
			"stable", pacing.Stable,
		)
	}
}

// Shutdown stops the control plane, health server, and broker session, then
// logs the final run summary. Safe to call more than once.
func (d *Device) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	d.setState(StateStopping)
	slog.Info("shutting down device", "device_id", d.cfg.Device.ID)

	if d.control != nil {
		if err := d.control.Stop(); err != nil {
			slog.Warn("control plane stop failed", "error", err)
		}
	}

	d.preview.Close()

	if d.healthSrv != nil {
		if err := d.healthSrv.Shutdown(ctx); err != nil {
			slog.Warn("health server shutdown failed", "error", err)
		}
	}

	if err := d.pub.Disconnect(); err != nil {
		slog.Warn("mqtt disconnect failed", "error", err)
	}

	snap := d.Snapshot()
	pacing := d.pacer.Stats()
	var uptime time.Duration
	if !snap.StartedAt.IsZero() {
		uptime = time.Since(snap.StartedAt).Round(time.Second)
	}
	slog.Info("device stopped",
		"frames_processed", snap.FramesProcessed,
		"alerts_raised", snap.AlertsRaised,
		"publish_errors", snap.PublishErrors,
		"achieved_fps", fmt.Sprintf("%.2f", pacing.AchievedFPS),
		"uptime", uptime.String(),
	)

	d.setState(StateTerminated)
	return nil
}

// ShutdownTimeout returns how long a graceful stop may take
func (d *Device) ShutdownTimeout() time.Duration {
	if s := d.cfg.Device.ShutdownTimeoutS; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 5 * time.Second
}

// Snapshot returns a copy of the loop counters
func (d *Device) Snapshot() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// State returns the current lifecycle phase
func (d *Device) State() State {
	return State(d.state.Load())
}

func (d *Device) setState(s State) {
	old := State(d.state.Swap(int32(s)))
	if old != s {
		slog.Info("state transition", "from", old.String(), "to", s.String())
	}
}

// statusData builds the status document served on /status and returned by
// the control plane's get_status command
func (d *Device) statusData() map[string]interface{} {
	snap := d.Snapshot()
	pacing := d.pacer.Stats()

	data := map[string]interface{}{
		"device_id":         d.cfg.Device.ID,
		"site":              d.cfg.Device.Site,
		"state":             d.State().String(),
		"paused":            d.paused.Load(),
		"frames_processed":  snap.FramesProcessed,
		"alerts_raised":     snap.AlertsRaised,
		"publish_errors":    snap.PublishErrors,
		"last_object_count": snap.LastObjectCount,
		"achieved_fps":      pacing.AchievedFPS,
		"target_fps":        d.cfg.Stream.FPS,
		"frame_size":        fmt.Sprintf("%dx%d", d.cfg.Frame.Width, d.cfg.Frame.Height),
		"mqtt_connected":    d.pub != nil && d.pub.Connected(),
	}

	if !snap.StartedAt.IsZero() {
		data["uptime_seconds"] = int64(time.Since(snap.StartedAt).Seconds())
	}

	if p, ok := d.source.(interface{ Population() []string }); ok {
		data["population"] = p.Population()
	}

	return data
}

func (d *Device) pause() error {
	if d.State() != StateRunning {
		return fmt.Errorf("cannot pause in state %s", d.State())
	}
	d.paused.Store(true)
	slog.Info("stream paused")
	return nil
}

func (d *Device) resume() error {
	d.paused.Store(false)
	slog.Info("stream resumed")
	return nil
}

// stopFromControl cancels the run context; the main program then performs
// the usual graceful shutdown
func (d *Device) stopFromControl() error {
	d.mu.RLock()
	cancel := d.cancelRun
	d.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	return nil
}
