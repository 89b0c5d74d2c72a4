package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRecordSignupIncrementsOutcome(t *testing.T) {
	before := testutil.ToFloat64(signupCounter.WithLabelValues(OutcomeConflict))
	RecordSignup(OutcomeConflict)
	RecordSignup(OutcomeConflict)
	require.Equal(t, before+2, testutil.ToFloat64(signupCounter.WithLabelValues(OutcomeConflict)))
}

func TestRecordRosterSetsGauges(t *testing.T) {
	RecordRoster("Chess Club", 3, 12)

	var m dto.Metric
	require.NoError(t, participantsGauge.WithLabelValues("Chess Club").Write(&m))
	require.Equal(t, 3.0, m.GetGauge().GetValue())

	m.Reset()
	require.NoError(t, capacityGauge.WithLabelValues("Chess Club").Write(&m))
	require.Equal(t, 12.0, m.GetGauge().GetValue())
}

func TestRecordSignupCommittedIgnoresZeroTime(t *testing.T) {
	ts := time.Date(2025, time.September, 1, 15, 30, 0, 0, time.UTC)
	RecordSignupCommitted(ts)
	RecordSignupCommitted(time.Time{})

	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(lastSignupGauge))
}
