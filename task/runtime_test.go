package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntime_WaitBlocksUntilTaskReturns(t *testing.T) {
	rt := NewRuntime(context.Background())

	var ran int32
	rt.Spawn("t1", func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})

	rt.Wait()
	assert.Equal(t, int32(1), ran)
}

func TestRuntime_ShutdownCancelsTaskContext(t *testing.T) {
	rt := NewRuntime(context.Background())

	done := make(chan error, 1)
	rt.Spawn("t1", func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})

	rt.Shutdown()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("task never observed cancellation")
	}
}

func TestRuntime_PanicInTaskDoesNotHangWait(t *testing.T) {
	rt := NewRuntime(context.Background())

	rt.Spawn("panicker", func(ctx context.Context) error {
		panic("boom")
	})

	done := make(chan struct{})
	go func() {
		rt.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after a panicking task")
	}
}

func TestRuntime_TaskErrorDoesNotAbortOtherTasks(t *testing.T) {
	rt := NewRuntime(context.Background())

	var ranAfterError int32
	rt.Spawn("failing", func(ctx context.Context) error {
		return errors.New("boom")
	})
	rt.Spawn("ok", func(ctx context.Context) error {
		atomic.StoreInt32(&ranAfterError, 1)
		return nil
	})

	rt.Wait()
	assert.Equal(t, int32(1), ranAfterError)
}
