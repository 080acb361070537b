package metrics

import (
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterExposesCounters(t *testing.T) {
	t.Parallel()

	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	atomic.AddInt64(&m.FilesClaimedTotal, 3)
	atomic.StoreInt64(&m.PendingTransactions, 2)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[mf.GetName()] = c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				values[mf.GetName()] = g.GetValue()
			}
		}
	}
	assert.Len(t, values, len(m.fields()))
	assert.Equal(t, 3.0, values["cdr_ingest_files_claimed_total"])
	assert.Equal(t, 2.0, values["cdr_ingest_pending_transactions"])
}

func TestRegisterTwiceFails(t *testing.T) {
	t.Parallel()

	m := New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	require.Error(t, m.Register(reg))
}

func TestString(t *testing.T) {
	t.Parallel()

	m := New()
	atomic.AddInt64(&m.TransactionsCommittedTotal, 1)
	assert.Contains(t, m.String(), "transactions_committed_total=1\n")
	assert.Contains(t, m.String(), "sink_errors_total=0\n")
}
