package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/series"
)

func TestPlanTopologicalOrder(t *testing.T) {
	plan, err := NewPlan(PlanConfig{
		Layers:         []Layer{{Window: 1095, Over: 365}},
		RollingWindows: []int{365},
	})
	require.NoError(t, err)

	nodes := plan.Nodes()
	require.Len(t, nodes, 3)

	position := make(map[series.ID]int)
	for i, n := range nodes {
		for _, out := range n.Outputs {
			position[out] = i
		}
	}
	for i, n := range nodes {
		if n.Source == series.BaseID {
			continue
		}
		assert.Less(t, position[n.Source], i, "node %d must follow its source", i)
	}
}

func TestPlanDeduplicatesNodes(t *testing.T) {
	plan, err := NewPlan(PlanConfig{
		CAGRWindows:    []int{365, 365},
		RollingWindows: []int{30, 30},
		Layers:         []Layer{{Window: 30, Over: 365}},
	})
	require.NoError(t, err)
	assert.Len(t, plan.Nodes(), 3)
}

func TestPlanRejectsInvalidWindows(t *testing.T) {
	_, err := NewPlan(PlanConfig{CAGRWindows: []int{0}})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = NewPlan(PlanConfig{Layers: []Layer{{Window: -1, Over: 365}}})
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestPlanBuildDetectsMissingProducer(t *testing.T) {
	b := &planBuilder{registry: series.NewRegistry(), seen: make(map[series.Kind]bool)}
	src := b.registry.MustRegister(series.Kind{Tag: series.CAGR, Window: 10, Source: series.BaseID})
	b.rolling(5, src)
	require.NoError(t, b.err)

	_, err := b.build()
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestFieldsOrderAndFormat(t *testing.T) {
	plan, err := NewPlan(PlanConfig{
		CAGRWindows:    []int{365, 1095},
		RollingWindows: []int{365},
		Layers:         []Layer{{Window: 365, Over: 365}},
	})
	require.NoError(t, err)

	var names []string
	for _, f := range plan.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"nav",
		"cagr_365", "cagr_1095",
		"avg_365", "avg_365_cagr_365",
		"std_365", "std_365_cagr_365",
	}, names)

	for _, f := range plan.Fields() {
		if f.Tag == series.VarSum {
			assert.Equal(t, FieldVarSum, f.Format, f.Name)
		} else {
			assert.Equal(t, FieldValue, f.Format, f.Name)
		}
	}
}

func TestFieldDisplay(t *testing.T) {
	std := Field{Window: 4, Format: FieldVarSum}
	v, ok := std.Display(series.Some(36)).Get()
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-12)

	assert.False(t, std.Display(series.Absent).Present())

	plain := Field{Window: 4, Format: FieldValue}
	v, _ = plain.Display(series.Some(36)).Get()
	assert.Equal(t, 36.0, v)

	assert.Zero(t, StdDev(-1e-12, 10))
}
