package promadmission

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	adm "github.com/Andrej220/go-utils/admission"
)

type fixedStatus adm.Status

func (f fixedStatus) Status() adm.Status { return adm.Status(f) }

func TestMetrics_CountsSchedulerActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "admission")

	s := adm.New(adm.Options{
		MaxConcurrent: 1,
		PacingDelay:   -1,
		Retry: adm.RetryPolicy{
			MaxRetries: 1,
			Backoff:    adm.ExponentialBackoff{Unit: time.Millisecond},
		},
		Metrics: m,
	})

	ctx := context.Background()
	calls := 0
	_, err := adm.Do(ctx, s, "retry-once", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &adm.StatusError{Code: http.StatusTooManyRequests}
		}
		return 1, nil
	})
	require.NoError(t, err)

	_, err = adm.Do(ctx, s, "broken", func(context.Context) (int, error) {
		return 0, errors.New("broken")
	})
	require.Error(t, err)

	require.Equal(t, 2.0, testutil.ToFloat64(m.admitted))
	require.Equal(t, 3.0, testutil.ToFloat64(m.dispatched))
	require.Equal(t, 1.0, testutil.ToFloat64(m.succeeded))
	require.Equal(t, 1.0, testutil.ToFloat64(m.retried))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failed))

	m.AddCleared(4)
	require.Equal(t, 4.0, testutil.ToFloat64(m.cleared))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestCollector_ReportsStatus(t *testing.T) {
	c := NewCollector("admission", fixedStatus{QueueLength: 3, Active: 2, Retrying: 1})

	expected := `
# HELP admission_active Operations holding a concurrency slot.
# TYPE admission_active gauge
admission_active 2
# HELP admission_queue_length Operations waiting for dispatch.
# TYPE admission_queue_length gauge
admission_queue_length 3
# HELP admission_retrying Operations waiting out a retry backoff.
# TYPE admission_retrying gauge
admission_retrying 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}
