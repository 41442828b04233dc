// Package series holds the per-fund daily series and the metric kinds
// stored on each day.
package series

import (
	"errors"
	"fmt"
	"strconv"
)

// Tag identifies the family of a metric kind.
type Tag uint8

const (
	// Base is the observed or forward-filled NAV.
	Base Tag = iota
	// CAGR is the compound annual growth rate over a trailing window, in percent.
	CAGR
	// Avg is the trailing window mean.
	Avg
	// VarSum is the sum of squared deviations from the trailing window mean.
	VarSum
)

func (t Tag) String() string {
	switch t {
	case Base:
		return "nav"
	case CAGR:
		return "cagr"
	case Avg:
		return "avg"
	case VarSum:
		return "varsum"
	default:
		return "tag(" + strconv.Itoa(int(t)) + ")"
	}
}

// ID is the dense index a Registry assigns to a Kind.
type ID int

// BaseID is always the ID of the base kind.
const BaseID ID = 0

// Kind is a structured metric key. Window is in days and Source names the
// series the metric is computed over. Both are zero for Base.
type Kind struct {
	Tag    Tag
	Window int
	Source ID
}

var (
	ErrInvalidKind   = errors.New("invalid metric kind")
	ErrUnknownSource = errors.New("unknown metric source")
)

// Registry interns kinds to IDs. It is built once, before computation,
// and is read-only afterwards.
type Registry struct {
	kinds []Kind
	index map[Kind]ID
}

// NewRegistry returns a registry holding only the base kind.
func NewRegistry() *Registry {
	r := &Registry{index: make(map[Kind]ID)}
	r.kinds = append(r.kinds, Kind{Tag: Base})
	r.index[Kind{Tag: Base}] = BaseID
	return r
}

// Register returns the ID for k, assigning a new one on first sight.
func (r *Registry) Register(k Kind) (ID, error) {
	if id, ok := r.index[k]; ok {
		return id, nil
	}
	if k.Tag == Base {
		return 0, fmt.Errorf("%w: base kind with window %d", ErrInvalidKind, k.Window)
	}
	if k.Tag > VarSum {
		return 0, fmt.Errorf("%w: %s", ErrInvalidKind, k.Tag)
	}
	if k.Window <= 0 {
		return 0, fmt.Errorf("%w: %s window must be positive, got %d", ErrInvalidKind, k.Tag, k.Window)
	}
	if int(k.Source) < 0 || int(k.Source) >= len(r.kinds) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSource, k.Source)
	}
	id := ID(len(r.kinds))
	r.kinds = append(r.kinds, k)
	r.index[k] = id
	return id, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(k Kind) ID {
	id, err := r.Register(k)
	if err != nil {
		panic(err)
	}
	return id
}

// Lookup returns the ID of an already registered kind.
func (r *Registry) Lookup(k Kind) (ID, bool) {
	id, ok := r.index[k]
	return id, ok
}

// Kind returns the kind registered under id.
func (r *Registry) Kind(id ID) (Kind, bool) {
	if int(id) < 0 || int(id) >= len(r.kinds) {
		return Kind{}, false
	}
	return r.kinds[id], true
}

// Len returns the number of registered kinds, base included.
func (r *Registry) Len() int { return len(r.kinds) }

// Name returns a stable identifier such as "cagr_365" or "varsum_1095_cagr_365".
func (r *Registry) Name(id ID) string {
	k, ok := r.Kind(id)
	if !ok {
		return "unknown_" + strconv.Itoa(int(id))
	}
	return r.name(k, k.Tag.String())
}

func (r *Registry) name(k Kind, prefix string) string {
	if k.Tag == Base {
		return prefix
	}
	n := prefix + "_" + strconv.Itoa(k.Window)
	if k.Source != BaseID {
		n += "_" + r.Name(k.Source)
	}
	return n
}

// DisplayName is Name with variance sums presented as standard deviations.
func (r *Registry) DisplayName(id ID) string {
	k, ok := r.Kind(id)
	if !ok || k.Tag != VarSum {
		return r.Name(id)
	}
	return r.name(k, "std")
}
