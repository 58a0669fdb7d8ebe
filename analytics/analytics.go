// Package analytics defines the fire-and-forget notification boundary used
// by the confirmation engine. Sinks are injected; the engine never blocks on
// them and their failures never affect a confirmation outcome.
package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Event names emitted by the engine.
const (
	EventConfirmCompleted  = "confirm_completed"
	EventConfirmCanceled   = "confirm_canceled"
	EventConfirmFailed     = "confirm_failed"
	EventChallengeDegraded = "challenge_degraded"
)

// Event is a single analytics record.
type Event struct {
	Name      string
	AttemptID string
	At        time.Time
	Fields    map[string]any
}

// Notifier reacts to engine events (metrics forwarding, logging, etc.).
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Fanout dispatches each event to every configured notifier. Failures are
// joined and logged; callers treat Notify as best effort.
type Fanout struct {
	Notifiers []Notifier
	Logger    zerolog.Logger
}

// Notify implements Notifier.
func (f *Fanout) Notify(ctx context.Context, ev Event) error {
	if f == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	var joined error
	for _, n := range f.Notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, err)
		}
	}
	if joined != nil {
		f.Logger.Warn().Err(joined).Str("event", ev.Name).Msg("analytics notify failed")
	}
	return joined
}

// LogNotifier writes events to a structured log, useful as a default sink.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, ev Event) error {
	evt := l.Logger.Info().Str("event", ev.Name).Str("attempt_id", ev.AttemptID)
	for k, v := range ev.Fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg("analytics_event")
	return nil
}
