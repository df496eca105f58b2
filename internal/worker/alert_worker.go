// Package worker consumes published alert events and delivers them to
// the notification sink, with a periodic sweep for events whose AMQP
// message was lost.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gafi/internal/amqp"
	"gafi/internal/core"
	"gafi/internal/storage"
)

// NotificationSink receives a delivered alert record for a user.
type NotificationSink interface {
	Deliver(ctx context.Context, userID string, record core.InsightRecord) error
}

// LogSink writes delivered alerts to the structured log. It is the
// default sink when no push transport is configured.
type LogSink struct{}

func (LogSink) Deliver(ctx context.Context, userID string, record core.InsightRecord) error {
	slog.InfoContext(ctx, "Alert delivered",
		"user_id", userID,
		"record_id", record.ID,
		"type", record.Type,
		"title", record.Title)
	return nil
}

type AlertWorker struct {
	storage   *storage.SQLiteRepository
	sink      NotificationSink
	batchSize int
}

func NewAlertWorker(storage *storage.SQLiteRepository, sink NotificationSink, batchSize int) *AlertWorker {
	if sink == nil {
		sink = LogSink{}
	}
	return &AlertWorker{
		storage:   storage,
		sink:      sink,
		batchSize: batchSize,
	}
}

// HandleAlertMessage processes a single alert event message from AMQP.
// The message carries only the row id; the event body is re-read from
// SQLite so the queue never holds stale alert content.
func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.AlertEventMessage) error {
	slog.InfoContext(ctx, "Processing alert message",
		"event_id", msg.EventID,
		"level", msg.Level)

	event, err := w.storage.GetAlertEvent(ctx, msg.EventID)
	if err != nil {
		return fmt.Errorf("get alert event from storage: %w", err)
	}

	return w.deliverEvent(ctx, event)
}

// ProcessPendingEvents delivers any events that never made it through
// AMQP. This is a backup mechanism in case messages are lost.
func (w *AlertWorker) ProcessPendingEvents(ctx context.Context) error {
	pending, err := w.storage.PendingAlertEvents(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending alert events: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending alert events", "count", len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, event := range pending {
		event := event
		g.Go(func() error {
			if err := w.deliverEvent(gctx, event); err != nil {
				slog.ErrorContext(gctx, "Failed to deliver pending alert event",
					"event_id", event.ID, "error", err)
			}
			// Failures are recorded per event; keep the sweep going
			return nil
		})
	}
	return g.Wait()
}

// StartupCheck drains the pending backlog at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *AlertWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.PendingAlertEvents(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending alert events for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending alert events found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending alert events on startup, processing...",
		"count", len(pending))

	delivered := 0
	failed := 0
	for _, event := range pending {
		if err := w.deliverEvent(ctx, event); err != nil {
			slog.ErrorContext(ctx, "Failed to deliver alert event during startup",
				"event_id", event.ID, "error", err)
			failed++
			continue
		}
		delivered++
	}

	slog.InfoContext(ctx, "Startup delivery completed",
		"total", len(pending),
		"delivered", delivered,
		"errors", failed)
	return nil
}

func (w *AlertWorker) deliverEvent(ctx context.Context, event storage.AlertEvent) error {
	var record core.InsightRecord
	if err := json.Unmarshal(event.Payload, &record); err != nil {
		// The payload column defaults to "{}"; rebuild a minimal record
		// rather than dropping the alert.
		record = core.InsightRecord{}
	}
	if record.ID == "" {
		record.ID = fmt.Sprintf("alert-event-%d", event.ID)
	}
	if record.Title == "" {
		record.Title = event.Title
	}
	if record.Message == "" {
		record.Message = event.Message
	}

	if err := w.sink.Deliver(ctx, event.UserID, record); err != nil {
		if markErr := w.storage.MarkAlertDeliveryError(ctx, event.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark delivery error",
				"event_id", event.ID, "error", markErr)
		}
		return fmt.Errorf("deliver alert: %w", err)
	}

	if err := w.storage.MarkAlertDelivered(ctx, event.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as delivered", "event_id", event.ID, "error", err)
		// Don't return error here - the delivery actually worked
	}

	slog.InfoContext(ctx, "Successfully delivered alert event",
		"event_id", event.ID,
		"user_id", event.UserID,
		"level", event.Level)
	return nil
}
