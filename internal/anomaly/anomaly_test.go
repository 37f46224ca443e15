package anomaly

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/permits/internal/metrics"
)

func TestRecorderAndMulti(t *testing.T) {
	rec := &Recorder{}
	m := metrics.NewRegistry()
	r := Multi{rec, NewLogReporter(m), Discard}

	ctx := context.Background()
	r.Report(ctx, Errorf(Format, "abc", "ownerState", "bad value %q", "x"))
	r.Report(ctx, Anomaly{Kind: Fetch, Err: errors.New("timeout")})

	assert.Len(t, rec.All(), 2)
	assert.Equal(t, 1, rec.Count(Format))
	assert.Equal(t, 0, rec.Count(Delivery))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Anomalies.WithLabelValues("format")), 0)
}

func TestAnomalyError(t *testing.T) {
	base := errors.New("boom")
	a := Anomaly{Kind: ValueMap, SubmissionID: "abc", Field: "ownerState", Err: base}

	assert.Equal(t, `value_map submission=abc field=ownerState: boom`, a.Error())
	assert.ErrorIs(t, a, base)
}
