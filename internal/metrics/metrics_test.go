package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCounts(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	m.RecordMatch(OutcomeOK)
	m.RecordMatch(OutcomeOK)
	m.RecordMatch(OutcomeMalformed)
	m.RecordMistake("DRY_PEEK")
	m.RecordRule("kill_gate")
	m.AddEvents(42)
	m.ObserveStage("features", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.matches.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matches.WithLabelValues(OutcomeMalformed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mistakes.WithLabelValues("DRY_PEEK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rulesFired.WithLabelValues("kill_gate")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.events))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordMatch(OutcomeOK)

	path := filepath.Join(t.TempDir(), "cscoach.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `cscoach_matches_analysed_total{outcome="ok"} 1`)
}
