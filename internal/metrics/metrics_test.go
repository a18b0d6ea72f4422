package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Comparisons.WithLabelValues("IDENTICAL").Inc()
	m.Comparisons.WithLabelValues("IDENTICAL").Inc()
	m.Diffs.WithLabelValues("full").Inc()
	m.Mappings.Inc()
	m.Observe("compare", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Comparisons.WithLabelValues("IDENTICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Diffs.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mappings))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Comparisons.WithLabelValues("DIFFERENT").Inc()

	path := filepath.Join(t.TempDir(), "devdag.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `devdag_comparisons_total{result="DIFFERENT"} 1`)
	assert.Contains(t, string(b), "# TYPE devdag_isomorphism_mappings_total counter")
}
