package device

import (
	"context"
	"time"

	"github.com/visiona/argus/internal/types"
)

// FrameSource produces one synthetic frame and its ground-truth detections
// per call. Implementations are driven synchronously by the tick loop and
// need no internal locking.
type FrameSource interface {
	NextFrame() (types.Frame, []types.Detection, error)
}

// Publisher is the pub/sub boundary of the device. The production
// implementation is the MQTT emitter; tests substitute a recorder.
type Publisher interface {
	Connect(ctx context.Context) error
	Publish(topic string, payload []byte, qos byte) error
	Disconnect() error
	Connected() bool
	DisconnectedFor() time.Duration
}
