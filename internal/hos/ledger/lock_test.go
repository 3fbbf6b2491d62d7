package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "fleetops/pkg/domain"
	dErrors "fleetops/pkg/domain-errors"
)

func TestShardedLocker(t *testing.T) {
	l := NewShardedLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "driver-1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "driver-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, "lock_timeout", dErrors.Details(err)["reason"])

	unlock()
	unlock, err = l.Lock(ctx, "driver-1")
	require.NoError(t, err)
	unlock()
}

func TestHashDriverIsStable(t *testing.T) {
	assert.Equal(t, hashDriver("driver-1"), hashDriver(id.DriverID("driver-1")))
	assert.NotEqual(t, hashDriver("driver-1"), hashDriver("driver-2"))
}
