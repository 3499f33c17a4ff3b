package frame

import (
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/internal/logging"
)

// OptFlags selects the optimizer rules applied before execution.
type OptFlags uint8

const (
	// PredicatePushdown moves filters closer to the source
	PredicatePushdown OptFlags = 1 << iota
	// ProjectionFusion merges adjacent projections and adjacent drops
	ProjectionFusion
	// SlicePushdown merges slices and moves them below element-wise nodes
	SlicePushdown
	// FilterFusion merges adjacent filters into one conjunction
	FilterFusion
)

const (
	// OptNone disables every rule
	OptNone OptFlags = 0
	// OptDefault enables every rule
	OptDefault = PredicatePushdown | ProjectionFusion | SlicePushdown | FilterFusion
	// OptEager enables only the rules that never reorder nodes. DataFrame
	// operators run their one-shot plans with it.
	OptEager = ProjectionFusion | FilterFusion
)

func (f OptFlags) String() string {
	if f == OptNone {
		return "none"
	}
	var parts []string
	for _, r := range []struct {
		flag OptFlags
		name string
	}{
		{PredicatePushdown, "predicate_pushdown"},
		{ProjectionFusion, "projection_fusion"},
		{SlicePushdown, "slice_pushdown"},
		{FilterFusion, "filter_fusion"},
	} {
		if f&r.flag != 0 {
			parts = append(parts, r.name)
		}
	}
	return strings.Join(parts, "|")
}

// ExecOptions controls how plans are optimized and executed.
type ExecOptions struct {
	Optimizations OptFlags
	// Workers bounds the goroutines used for column and partition parallel
	// work. Values below 2 execute sequentially.
	Workers int
	// ParallelThreshold is the minimum input height before work is split.
	ParallelThreshold int
	Logger            *zap.Logger
}

var (
	defaultsMu sync.RWMutex
	defaults   = ExecOptions{
		Optimizations:     OptDefault,
		Workers:           runtime.NumCPU(),
		ParallelThreshold: 4096,
	}
)

// DefaultExecOptions returns the options new LazyFrames execute with
func DefaultExecOptions() ExecOptions {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaults
}

// SetDefaultExecOptions replaces the process-wide defaults.
func SetDefaultExecOptions(opts ExecOptions) {
	defaultsMu.Lock()
	defaults = opts
	defaultsMu.Unlock()
}

func (o ExecOptions) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Named("frame")
}

// parallelWorkers returns the worker count to use for height rows.
func (o ExecOptions) parallelWorkers(height int) int {
	if o.Workers < 2 || height < o.ParallelThreshold {
		return 1
	}
	return o.Workers
}
