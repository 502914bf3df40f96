package worker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorker_go_stop_join(t *testing.T) {
	w := New(Options{Name: "test"})
	require.False(t, w.Running())

	started := make(chan struct{})
	require.NoError(t, w.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started
	require.True(t, w.Running())
	require.ErrorIs(t, w.Go(func(context.Context) {}), ErrAlreadyStarted)

	w.Stop()
	require.NoError(t, w.Join(t.Context()))
	require.False(t, w.Running())

	select {
	case <-w.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestWorker_join_timeout(t *testing.T) {
	w := New(Options{})
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, w.Go(func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, w.Join(ctx), context.DeadlineExceeded)
}

func TestWorker_join_never_started(t *testing.T) {
	w := New(Options{})
	require.NoError(t, w.Join(t.Context()))
	require.ErrorIs(t, w.Go(func(context.Context) {}), ErrAlreadyStarted)
}

func TestWorker_panic(t *testing.T) {
	got := make(chan any, 1)
	w := New(Options{
		Logger:  slog.New(slog.DiscardHandler),
		OnPanic: func(recovered any, stack []byte) { got <- recovered },
	})
	require.NoError(t, w.Go(func(context.Context) { panic("boom") }))
	require.NoError(t, w.Join(t.Context()))
	require.Equal(t, "boom", <-got)
}
