package cycler

import (
	"time"

	"github.com/hulks-go/motioncore/internal/hardware"
	"github.com/hulks-go/motioncore/internal/paramtree"
)

// TickContext is the single value every node's Cycle method receives. It
// bundles this tick's timing, this cycler's own output database, the
// cross-cycler databases this cycler subscribes to, the historic store,
// drained perception groups, the current parameter snapshot, this
// cycler's own persistent state, and the hardware collaborator. A node
// never constructs one; the runtime builds exactly one per tick and
// shares it across every node in the plan.
type TickContext struct {
	CyclerName string
	StartTime  time.Time
	CycleTime  time.Duration

	db             *Database
	crossCyclerDBs map[string]*Database

	historic   *HistoricStore
	perception map[string]PerceptionGroup

	params paramtree.Snapshot
	state  *State

	hw hardware.Interface

	subscriptions map[string]bool
}

// Node is the unit of work a cycler runs once per tick. Cycle returns an
// error to signal that this node's output could not be produced this
// tick; Classify decides whether that aborts just the tick, tears the
// cycler down, or is a benign skip.
type Node interface {
	Cycle(tc *TickContext) error
}

// NodeFunc adapts a plain function to the Node interface, the way
// http.HandlerFunc adapts a function to http.Handler.
type NodeFunc func(tc *TickContext) error

func (f NodeFunc) Cycle(tc *TickContext) error { return f(tc) }

// Input reads a main output this cycler itself produced earlier in the
// same tick. Every tick starts from an empty database, so a node that runs
// before the producer sees no value.
func Input[T any](tc *TickContext, path string) (T, bool) {
	return GetMainOutput[T](tc.db, path)
}

// RequiredInput reads a main output and returns ErrNoData if absent,
// matching the RequiredInput<T, path> contract: a node that can't run
// without this value ends its tick cleanly rather than operating on a
// zero value.
func RequiredInput[T any](tc *TickContext, path string) (T, error) {
	v, ok := Input[T](tc, path)
	if !ok {
		var zero T
		return zero, ErrNoData
	}
	return v, nil
}

// CrossInput reads a main output from another cycler's most recently
// committed database. Returns ErrNoData if that cycler hasn't produced
// the path yet, and ErrChannelSenderDropped if cycler is not one of this
// cycler's subscriptions.
func CrossInput[T any](tc *TickContext, cycler, path string) (T, error) {
	var zero T
	db, ok := tc.crossCyclerDBs[cycler]
	if !ok {
		return zero, ErrChannelSenderDropped
	}
	v, ok := GetMainOutput[T](db, path)
	if !ok {
		return zero, ErrNoData
	}
	return v, nil
}

// Historic reads the most-recent value at path with timestamp <= at, as
// of this cycler's historic store.
func (tc *TickContext) Historic(path string, at time.Time) (interface{}, bool) {
	return tc.historic.Query(path, at)
}

// Perception returns the persistent and temporary frame groups this
// cycler's node declared an interest in under name.
func (tc *TickContext) Perception(name string) PerceptionGroup {
	return tc.perception[name]
}

// Parameter reads a typed value from the current parameter snapshot at
// path. Returns the zero value and false if the path is absent or the
// stored value doesn't match T.
func Parameter[T any](tc *TickContext, path string) (T, bool) {
	var zero T
	raw := lookup(map[string]interface{}(tc.params), path)
	if raw == nil {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

func lookup(tree map[string]interface{}, path string) interface{} {
	segments := splitDotted(path)
	var cur interface{} = tree
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

func splitDotted(path string) []string {
	if path == "" {
		return nil
	}
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	return append(segments, path[start:])
}

// SetMainOutput commits a value at path for the remainder of this tick.
// Returns errAlreadyWritten if another node already wrote this path this
// tick.
func SetMainOutput[T any](tc *TickContext, path string, value T) error {
	return tc.db.setMainOutput(path, value)
}

// SetAdditionalOutput records a debug value, kept only if path is in this
// tick's subscription set (populated from the manifest's declared
// watchers, never unconditionally retained).
func SetAdditionalOutput[T any](tc *TickContext, path string, value T) {
	tc.db.setAdditionalOutput(path, value, tc.subscriptions)
}

// State returns this cycler's persistent record, mutable across ticks but
// never shared with any other cycler.
func (tc *TickContext) State() *State {
	return tc.state
}

// Hardware returns the hardware collaborator. Only the control cycler's
// nodes should call its sensor/actuator methods; GetNow/GetIds/GetPaths
// are safe from any cycler.
func (tc *TickContext) Hardware() hardware.Interface {
	return tc.hw
}
