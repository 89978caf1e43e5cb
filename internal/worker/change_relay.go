package worker

import (
	"context"
	"errors"
	"log/slog"

	"skillchisel/internal/livequery"
	applog "skillchisel/internal/log"
)

// ChangeSource streams changes published by every server instance.
type ChangeSource interface {
	ConsumeChanges(ctx context.Context, handler func(livequery.Change)) error
}

// ChangeRelay feeds changes made on other instances into the local hub so
// watchers here re-read after remote writes.
type ChangeRelay struct {
	source ChangeSource
	hub    *livequery.Hub
	logger *slog.Logger
}

func NewChangeRelay(source ChangeSource, hub *livequery.Hub, logger *slog.Logger) *ChangeRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeRelay{
		source: source,
		hub:    hub,
		logger: logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// Run blocks until ctx is done. A cancelled context is not reported as an error.
func (r *ChangeRelay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Starting change relay", "origin", r.hub.Origin())
	err := r.source.ConsumeChanges(ctx, r.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorContext(ctx, "Change relay stopped", "error", err)
		return err
	}
	r.logger.InfoContext(ctx, "Change relay stopped")
	return nil
}

func (r *ChangeRelay) handle(c livequery.Change) {
	if c.UserID == "" {
		return
	}
	if c.Origin == r.hub.Origin() {
		return
	}
	r.logger.Debug("Relaying remote change", "user_id", c.UserID, "origin", c.Origin)
	r.hub.HandleRemote(c)
}
