package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetops/pkg/platform/audit"
	"fleetops/pkg/platform/audit/store/memory"
	"fleetops/pkg/requestcontext"
)

type failingStore struct{ err error }

func (f failingStore) Append(context.Context, audit.Event) error { return f.err }

func TestEmit(t *testing.T) {
	t.Run("fills request metadata from context", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), now)
		ctx = requestcontext.WithRequestID(ctx, "req-1")
		ctx = requestcontext.WithActorID(ctx, "dispatcher-7")

		err := New(store).Emit(ctx, audit.Event{Action: audit.ActionEntryAppended, DriverID: "driver-1", Subject: "entry"})
		require.NoError(t, err)

		events, err := store.ListByDriver(ctx, "driver-1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, now, events[0].Timestamp)
		assert.Equal(t, "req-1", events[0].RequestID)
		assert.Equal(t, "dispatcher-7", string(events[0].ActorID))
		assert.NotEqual(t, [16]byte{}, [16]byte(events[0].ID))
	})

	t.Run("rejects incomplete events", func(t *testing.T) {
		p := New(memory.NewInMemoryStore())
		require.Error(t, p.Emit(context.Background(), audit.Event{Action: audit.ActionEntryAppended}))
		require.Error(t, p.Emit(context.Background(), audit.Event{DriverID: "driver-1", Action: "tea_break"}))
	})

	t.Run("fails closed when the store fails", func(t *testing.T) {
		boom := errors.New("disk full")
		err := New(failingStore{err: boom}).Emit(context.Background(), audit.Event{
			Action: audit.ActionViolationDetected, DriverID: "driver-1",
		})
		require.ErrorIs(t, err, boom)
	})
}
