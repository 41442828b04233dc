package statistics

import (
	"fmt"
	"slices"

	"navcli/internal/series"
)

// Op is the computation a plan node performs.
type Op int

const (
	// OpCAGR produces CAGR(window, source).
	OpCAGR Op = iota
	// OpRolling produces AVG(window, source) and VAR_SUM(window, source).
	OpRolling
)

func (o Op) String() string {
	if o == OpCAGR {
		return "cagr"
	}
	return "rolling"
}

// Node is one step of a Plan.
type Node struct {
	Op     Op
	Window int
	Source series.ID
	// Outputs holds the produced kinds: the CAGR kind, or the AVG and
	// VAR_SUM kinds of a rolling node in that order.
	Outputs []series.ID
}

// Layer asks for rolling statistics over Window days of the CAGR(Over) series.
type Layer struct {
	Window int `yaml:"window" json:"window"`
	Over   int `yaml:"over" json:"over"`
}

// PlanConfig lists the windows to compute, in days.
type PlanConfig struct {
	CAGRWindows    []int
	RollingWindows []int
	Layers         []Layer
}

// Plan is the metric dependency graph in evaluation order.
type Plan struct {
	registry *series.Registry
	nodes    []Node
}

// NewPlan builds the graph BASE → CAGR(W), BASE → AVG/VAR_SUM(W) and
// CAGR(W1) → AVG/VAR_SUM(W2) for every configured layer.
func NewPlan(cfg PlanConfig) (*Plan, error) {
	b := &planBuilder{registry: series.NewRegistry(), seen: make(map[series.Kind]bool)}
	for _, w := range cfg.CAGRWindows {
		b.cagr(w, series.BaseID)
	}
	for _, w := range cfg.RollingWindows {
		b.rolling(w, series.BaseID)
	}
	for _, l := range cfg.Layers {
		src := b.cagr(l.Over, series.BaseID)
		b.rolling(l.Window, src)
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.build()
}

// Registry returns the kinds known to the plan.
func (p *Plan) Registry() *series.Registry { return p.registry }

// Nodes returns the nodes in topological order.
func (p *Plan) Nodes() []Node { return slices.Clone(p.nodes) }

type planBuilder struct {
	registry *series.Registry
	nodes    []Node
	seen     map[series.Kind]bool
	err      error
}

func (b *planBuilder) register(k series.Kind) series.ID {
	if b.err != nil {
		return 0
	}
	id, err := b.registry.Register(k)
	if err != nil {
		b.err = fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return id
}

func (b *planBuilder) cagr(window int, src series.ID) series.ID {
	k := series.Kind{Tag: series.CAGR, Window: window, Source: src}
	id := b.register(k)
	if b.err == nil && !b.seen[k] {
		b.seen[k] = true
		b.nodes = append(b.nodes, Node{Op: OpCAGR, Window: window, Source: src, Outputs: []series.ID{id}})
	}
	return id
}

func (b *planBuilder) rolling(window int, src series.ID) {
	k := series.Kind{Tag: series.Avg, Window: window, Source: src}
	avg := b.register(k)
	v := b.register(series.Kind{Tag: series.VarSum, Window: window, Source: src})
	if b.err == nil && !b.seen[k] {
		b.seen[k] = true
		b.nodes = append(b.nodes, Node{Op: OpRolling, Window: window, Source: src, Outputs: []series.ID{avg, v}})
	}
}

// build orders the nodes so that every node comes after the producer of its source.
func (b *planBuilder) build() (*Plan, error) {
	producer := make(map[series.ID]int, len(b.nodes))
	for i, n := range b.nodes {
		for _, out := range n.Outputs {
			producer[out] = i
		}
	}

	indegree := make([]int, len(b.nodes))
	dependents := make([][]int, len(b.nodes))
	for i, n := range b.nodes {
		if n.Source == series.BaseID {
			continue
		}
		p, ok := producer[n.Source]
		if !ok {
			return nil, fmt.Errorf("%w: node %s(%d) reads kind %d which nothing produces",
				ErrInvalidPlan, n.Op, n.Window, n.Source)
		}
		indegree[i]++
		dependents[p] = append(dependents[p], i)
	}

	queue := make([]int, 0, len(b.nodes))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	ordered := make([]Node, 0, len(b.nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		ordered = append(ordered, b.nodes[i])
		for _, dep := range dependents[i] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if len(ordered) != len(b.nodes) {
		return nil, fmt.Errorf("%w: dependency cycle", ErrInvalidPlan)
	}
	return &Plan{registry: b.registry, nodes: ordered}, nil
}
