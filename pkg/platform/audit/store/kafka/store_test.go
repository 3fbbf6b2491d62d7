package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "fleetops/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var out kgo.ProduceResults
	for _, r := range rs {
		p.records = append(p.records, r)
		out = append(out, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return out
}

func TestAppendKeysByDriver(t *testing.T) {
	producer := &fakeProducer{}
	st := New(producer, "hos.audit")

	err := st.Append(context.Background(), audit.Event{Action: audit.ActionEntryAppended, DriverID: "driver-1"})
	require.NoError(t, err)

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "hos.audit", rec.Topic)
	assert.Equal(t, []byte("driver-1"), rec.Key)
	assert.Equal(t, "event_type", rec.Headers[0].Key)
	assert.Equal(t, []byte("entry_appended"), rec.Headers[0].Value)
	assert.Contains(t, string(rec.Value), `"action":"entry_appended"`)
}

func TestAppendSurfacesBrokerError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("not leader")}
	st := New(producer, "hos.audit")

	err := st.Append(context.Background(), audit.Event{Action: audit.ActionEntryAppended, DriverID: "driver-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not leader")
}
