package analytics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payflow/analytics"
)

type recordingNotifier struct {
	events []analytics.Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, ev analytics.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestFanoutDeliversToAllNotifiers(t *testing.T) {
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	f := &analytics.Fanout{Notifiers: []analytics.Notifier{first, nil, second}, Logger: zerolog.Nop()}

	err := f.Notify(context.Background(), analytics.Event{Name: analytics.EventConfirmCompleted, AttemptID: "a1"})
	require.NoError(t, err)
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	require.False(t, first.events[0].At.IsZero(), "timestamp is filled in")
}

func TestFanoutJoinsFailuresButDeliversToAll(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("sink down")}
	healthy := &recordingNotifier{}
	f := &analytics.Fanout{Notifiers: []analytics.Notifier{failing, healthy}, Logger: zerolog.Nop()}

	err := f.Notify(context.Background(), analytics.Event{Name: analytics.EventConfirmFailed})
	require.Error(t, err)
	require.Len(t, healthy.events, 1, "one failing sink must not starve the others")
}
