package engine

import (
	"errors"

	"github.com/BYTE-6D65/timemaster/pkg/emitter"
	"github.com/BYTE-6D65/timemaster/pkg/telemetry"
)

func recordNotification(metrics *telemetry.Metrics, emitterID string, err error) {
	if metrics == nil {
		return
	}

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, emitter.ErrUnsupportedEvent):
		result = "skipped"
	default:
		result = "error"
	}

	metrics.Notifications.WithLabelValues(emitterID, result).Inc()
}
