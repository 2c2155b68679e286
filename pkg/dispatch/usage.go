package dispatch

import (
	"context"
	"log/slog"
	"time"
)

// UsageRecord is the token usage of one completed provider call.
type UsageRecord struct {
	RequestID string
	Caller    string
	Provider  string
	Model     string
	Input     int
	Output    int
	At        time.Time
}

// UsageSink receives usage records for billing. Record is called from
// task goroutines and must be safe for concurrent use; it should not block.
type UsageSink interface {
	Record(ctx context.Context, rec UsageRecord)
}

// LogUsageSink writes usage records as log lines.
type LogUsageSink struct {
	Logger *slog.Logger
}

// Record implements UsageSink.
func (s LogUsageSink) Record(ctx context.Context, rec UsageRecord) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "token usage",
		"request_id", rec.RequestID,
		"caller", rec.Caller,
		"provider", rec.Provider,
		"model", rec.Model,
		"input_tokens", rec.Input,
		"output_tokens", rec.Output,
	)
}
