//go:build integration

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fleetops/pkg/domain-errors"
	"fleetops/pkg/testutil/containers"
)

func TestRedisLocker(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	l := NewRedisLocker(rc.Client.Client, WithLockTTL(2*time.Second), WithRetryInterval(5*time.Millisecond))
	other := NewRedisLocker(rc.Client.Client)

	unlock, err := l.Lock(ctx, "driver-1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = other.Lock(waitCtx, "driver-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	unlock()
	unlock2, err := other.Lock(ctx, "driver-1")
	require.NoError(t, err)
	unlock2()
}

func TestRedisLockerExpires(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	l := NewRedisLocker(rc.Client.Client, WithLockTTL(100*time.Millisecond), WithRetryInterval(5*time.Millisecond))

	_, err := l.Lock(ctx, "driver-1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	unlock, err := l.Lock(waitCtx, "driver-1")
	require.NoError(t, err, "a crashed holder's lock expires")
	unlock()
}
