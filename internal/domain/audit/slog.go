package audit

import (
	"context"
	"log/slog"
	"time"
)

// LogSink writes events to a structured logger. It is the diagnostic sink
// used when no durable store is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Record(ctx context.Context, evt Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, evt.Action+" activity",
		"userId", evt.UserID,
		"email", evt.Email,
		"action", evt.Action,
		"status", evt.Status,
		"timestamp", evt.Timestamp.UTC().Format(time.RFC3339),
		"ip", evt.IP,
		"requestId", evt.RequestID,
	)
	return nil
}
