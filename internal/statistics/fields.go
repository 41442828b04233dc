package statistics

import (
	"cmp"
	"slices"

	"navcli/internal/series"
)

// FieldFormat tells a sink how to present a stored value.
type FieldFormat int

const (
	// FieldValue is emitted as stored.
	FieldValue FieldFormat = iota
	// FieldVarSum is a variance sum emitted as sqrt(value/window).
	FieldVarSum
)

// Field is one report column.
type Field struct {
	Name   string
	ID     series.ID
	Tag    series.Tag
	Window int
	Format FieldFormat
}

// Display converts a stored value to its reported form.
func (f Field) Display(v series.Value) series.Value {
	x, ok := v.Get()
	if !ok || f.Format != FieldVarSum {
		return v
	}
	return series.Some(StdDev(x, f.Window))
}

// Fields returns the report columns: the base value first, then CAGRs,
// averages and standard deviations, each group in plan order.
func (p *Plan) Fields() []Field {
	reg := p.registry
	fields := make([]Field, 0, reg.Len())
	for id := series.ID(0); int(id) < reg.Len(); id++ {
		k, _ := reg.Kind(id)
		f := Field{Name: reg.DisplayName(id), ID: id, Tag: k.Tag, Window: k.Window}
		if k.Tag == series.VarSum {
			f.Format = FieldVarSum
		}
		fields = append(fields, f)
	}
	slices.SortStableFunc(fields, func(a, b Field) int {
		return cmp.Compare(a.Tag, b.Tag)
	})
	return fields
}
