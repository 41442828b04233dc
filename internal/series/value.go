package series

// Value is a metric value that may be absent. Absent and zero are distinct.
type Value struct {
	v  float64
	ok bool
}

// Some returns a present value.
func Some(v float64) Value { return Value{v: v, ok: true} }

// Absent is the missing value.
var Absent = Value{}

// Get returns the value and whether it is present.
func (v Value) Get() (float64, bool) { return v.v, v.ok }

// Present reports whether the value is set.
func (v Value) Present() bool { return v.ok }

// Or returns the value or def when absent.
func (v Value) Or(def float64) float64 {
	if !v.ok {
		return def
	}
	return v.v
}
