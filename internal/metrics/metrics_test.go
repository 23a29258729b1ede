package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label == "" {
				return m.GetCounter().GetValue()
			}
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRegisterAndObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	success := gatherCounter(t, reg, "scirius_source_sync_total", ResultSuccess)
	failure := gatherCounter(t, reg, "scirius_source_sync_total", ResultFailure)
	exports := gatherCounter(t, reg, "scirius_ruleset_exports_total", "")
	added := gatherCounter(t, reg, "scirius_rules_imported_total", "added")

	ObserveSync(nil, 0.2)
	ObserveSync(errors.New("boom"), 0)
	AddImportedRules(3, 1)
	IncRulesetExport()

	assert.Equal(t, success+1, gatherCounter(t, reg, "scirius_source_sync_total", ResultSuccess))
	assert.Equal(t, failure+1, gatherCounter(t, reg, "scirius_source_sync_total", ResultFailure))
	assert.Equal(t, exports+1, gatherCounter(t, reg, "scirius_ruleset_exports_total", ""))
	assert.Equal(t, added+3, gatherCounter(t, reg, "scirius_rules_imported_total", "added"))
}
