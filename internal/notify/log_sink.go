package notify

import (
	"context"

	"github.com/toolshop/storefront/pkg/logger"
)

// LogSink writes notifications to the structured logger.
type LogSink struct {
	logg *logger.Logger
}

// NewLogSink returns a sink backed by logg.
func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Notify(ctx context.Context, event Event, payload Payload) {
	if s == nil || s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event": string(event),
		"toast": string(payload.Level),
	})
	if payload.Level == LevelError {
		s.logg.Warn(ctx, payload.Message)
		return
	}
	s.logg.Debug(ctx, payload.Message)
}
