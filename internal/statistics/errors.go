package statistics

import "errors"

var (
	// ErrPrecondition marks input the engine cannot compute on, such as an
	// empty series or a non-positive NAV. It is fatal for one fund only.
	ErrPrecondition = errors.New("precondition violated")
	// ErrInvalidPlan is returned for metric configurations that do not form a valid graph.
	ErrInvalidPlan = errors.New("invalid metric plan")
)
