package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	mirrormem "fintrack/internal/sheets/memory"
	"fintrack/internal/store/memory"
)

func lunch() core.Transaction {
	return core.Transaction{
		Date:        "01-03-2024",
		Amount:      decimal.RequireFromString("42.50"),
		Category:    "food",
		Description: "lunch",
	}
}

type brokenMirror struct{ *mirrormem.Mirror }

func (brokenMirror) AppendRow(context.Context, core.Transaction) error {
	return errors.New("quota exceeded")
}

func TestHandleAppendAndClear(t *testing.T) {
	ctx := context.Background()
	mirror := mirrormem.New()
	w := NewMirrorWorker(memory.New(), mirror)

	require.NoError(t, w.Handle(ctx, amqp.NewAppendedEvent(lunch())))
	assert.Equal(t, [][]string{{"01-03-2024", "42.5", "food", "lunch"}}, mirror.Rows())

	require.NoError(t, w.Handle(ctx, amqp.NewClearedEvent()))
	assert.Empty(t, mirror.Rows())
}

func TestHandleUnknownEventIsIgnored(t *testing.T) {
	w := NewMirrorWorker(memory.New(), mirrormem.New())
	assert.NoError(t, w.Handle(context.Background(), &amqp.TransactionEvent{Type: "something.else"}))
}

func TestHandleMirrorFailureIsReturned(t *testing.T) {
	w := NewMirrorWorker(memory.New(), brokenMirror{mirrormem.New()})
	err := w.Handle(context.Background(), amqp.NewAppendedEvent(lunch()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestHandleBadAmount(t *testing.T) {
	w := NewMirrorWorker(memory.New(), mirrormem.New())
	ev := amqp.NewAppendedEvent(lunch())
	ev.Transaction.Amount = "lots"
	assert.Error(t, w.Handle(context.Background(), ev))
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	mirror := mirrormem.New()
	require.NoError(t, mirror.AppendRow(ctx, lunch()))
	require.NoError(t, mirror.AppendRow(ctx, lunch()))

	second := lunch()
	second.Date = "02-03-2024"
	w := NewMirrorWorker(memory.New(second), mirror)

	require.NoError(t, w.Resync(ctx))
	assert.Equal(t, [][]string{{"02-03-2024", "42.5", "food", "lunch"}}, mirror.Rows())
}

func TestRunPeriodicResyncStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mirror := mirrormem.New()
	w := NewMirrorWorker(memory.New(lunch()), mirror)

	done := make(chan error, 1)
	go func() { done <- w.RunPeriodicResync(ctx, time.Hour) }()

	require.Eventually(t, func() bool { return len(mirror.Rows()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("periodic resync did not stop")
	}
}
