package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dockerscanner/scanner-bridge/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestShutdown_RunsAllHandlersOnce(t *testing.T) {
	m := NewManager(time.Second, logging.Discard())

	var calls atomic.Int32
	for _, name := range []string{"http-server", "invocations"} {
		m.RegisterHandler(name, func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	require.False(t, m.IsShuttingDown())
	require.NoError(t, m.Shutdown(context.Background()))
	require.True(t, m.IsShuttingDown())
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestShutdown_JoinsErrors(t *testing.T) {
	m := NewManager(time.Second, logging.Discard())
	boom := errors.New("boom")
	m.RegisterHandler("broken", func(ctx context.Context) error { return boom })
	m.RegisterHandler("fine", func(ctx context.Context) error { return nil })

	err := m.Shutdown(context.Background())
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "broken: boom")
}

func TestShutdown_Timeout(t *testing.T) {
	m := NewManager(20*time.Millisecond, logging.Discard())
	m.RegisterHandler("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}
