package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCollect(t *testing.T) {
	okBefore := testutil.ToFloat64(CollectTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(CollectTotal.WithLabelValues("error"))

	ObserveCollect(time.Now(), nil)
	ObserveCollect(time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(CollectTotal.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(CollectTotal.WithLabelValues("error")))
}

func TestSnapshotIncludesCounters(t *testing.T) {
	OptimizerRewrites.WithLabelValues("filter_fusion").Inc()

	samples, err := Snapshot()
	require.NoError(t, err)

	found := false
	for _, s := range samples {
		if s.Name == "colframe_optimizer_rewrites_total" && s.Labels["rule"] == "filter_fusion" {
			found = true
			assert.GreaterOrEqual(t, s.Value, 1.0)
		}
	}
	assert.True(t, found)
}
