package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestCount(t *testing.T, route, status string) float64 {
	t.Helper()
	families, err := Registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != namespace+"_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == route && labels["status"] == status {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestObserveHTTP(t *testing.T) {
	before := requestCount(t, "/api/me/balance", "200")
	ObserveHTTP("GET", "/api/me/balance", 200, 0.01)
	assert.Equal(t, before+1, requestCount(t, "/api/me/balance", "200"))
}
