// Package paramtree implements the parameter tree: a hierarchical document
// loaded once from JSON at startup, reloadable, with dotted-string paths
// into it. Nodes borrow a subtree by reference for the duration of a
// tick; writes go through a single-writer path and fan out change
// notifications over a dedicated watch channel.
package paramtree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/spf13/viper"

	"github.com/hulks-go/motioncore/internal/watch"
)

// Snapshot is an immutable view of the whole tree at a point in time.
// Subtree borrows a node reads through it are read-only pointers into one
// of these, never the live mutable tree.
type Snapshot map[string]interface{}

// Tree is the single-writer, multi-reader parameter document.
type Tree struct {
	vp *viper.Viper

	mu      sync.RWMutex
	current Snapshot

	changes *watch.Channel[Snapshot]
}

// New loads the parameter tree from a JSON file and starts watching it for
// external edits.
func New(path string) (*Tree, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("json")
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("paramtree: read config: %w", err)
	}

	t := &Tree{
		vp:      vp,
		current: deepCopy(vp.AllSettings()),
		changes: watch.New[Snapshot](watch.DefaultSlots+4, 4),
	}

	w, err := t.changes.Write()
	if err != nil {
		return nil, err
	}
	*w.Value() = t.current
	w.Release()

	vp.OnConfigChange(func(_ viper.Event) {
		_ = vp.ReadInConfig()
		t.commit(deepCopy(vp.AllSettings()))
	})
	vp.WatchConfig()

	return t, nil
}

// Snapshot returns the current tree. Callers must treat the result as
// read-only; it is shared with other readers.
func (t *Tree) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Subtree returns the value at a dotted path within the current snapshot,
// or nil if the path does not exist.
func (t *Tree) Subtree(path string) interface{} {
	return lookup(t.Snapshot(), path)
}

// Changes returns the channel through which a full, new Snapshot is
// published every time a commit actually changes the tree: change
// notifications fire only on committed tree mutations, never on no-op
// writes. A cycler polls this once per tick and hands the newest Snapshot
// to all of its nodes; no node is told which subtree changed.
func (t *Tree) Changes() *watch.Channel[Snapshot] {
	return t.changes
}

// Merge deep-merges patch into the tree. It is idempotent: merging the
// same patch twice after the first application is a no-op and fires no
// change notification.
func (t *Tree) Merge(patch map[string]interface{}) error {
	t.mu.Lock()
	merged := mergeInto(deepCopy(t.current), patch)
	t.mu.Unlock()

	t.commit(merged)
	return nil
}

func (t *Tree) commit(next Snapshot) {
	t.mu.Lock()
	if reflect.DeepEqual(t.current, next) {
		t.mu.Unlock()
		return
	}
	t.current = next
	t.mu.Unlock()

	w, err := t.changes.Write()
	if err != nil {
		return
	}
	*w.Value() = next
	w.Release()
}

// Reload reads the backing file again and commits the result, used by
// callers that don't rely on fsnotify (e.g. a test harness, or a recovery
// path that falls back to the last-known-good tree if the reread fails).
func (t *Tree) Reload() error {
	if err := t.vp.ReadInConfig(); err != nil {
		return fmt.Errorf("paramtree: reload: %w", err)
	}
	t.commit(deepCopy(t.vp.AllSettings()))
	return nil
}

// AwaitChange blocks until a newer snapshot than lastAge is published or
// ctx is cancelled.
func (t *Tree) AwaitChange(ctx context.Context, lastAge uint64) (Snapshot, uint64, error) {
	return t.changes.AwaitChange(ctx, lastAge)
}

// Merge is the free function form used by tests and by PruneEqual's
// round-trip property; it never mutates either input.
func Merge(base, patch map[string]interface{}) map[string]interface{} {
	return mergeInto(deepCopy(base), patch)
}

func mergeInto(dst, patch map[string]interface{}) map[string]interface{} {
	for k, pv := range patch {
		if pm, ok := pv.(map[string]interface{}); ok {
			if dm, ok := dst[k].(map[string]interface{}); ok {
				dst[k] = mergeInto(deepCopy(dm), pm)
				continue
			}
			dst[k] = mergeInto(map[string]interface{}{}, pm)
			continue
		}
		dst[k] = pv
	}
	return dst
}

// PruneEqual removes every branch of a that is structurally equal to the
// corresponding branch of b, returning only what differs. Satisfies the
// pruning law: PruneEqual(a, a) == {}, and Merge(b, PruneEqual(a, b)) == a
// up to branches only b has.
func PruneEqual(a, b map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, av := range a {
		bv, exists := b[k]
		if !exists {
			out[k] = av
			continue
		}
		am, aIsMap := av.(map[string]interface{})
		bm, bIsMap := bv.(map[string]interface{})
		if aIsMap && bIsMap {
			if pruned := PruneEqual(am, bm); len(pruned) > 0 {
				out[k] = pruned
			}
			continue
		}
		if !reflect.DeepEqual(av, bv) {
			out[k] = av
		}
	}
	return out
}

// CopyNested extracts a deep copy of the subtree at a dotted path.
func CopyNested(tree map[string]interface{}, path string) interface{} {
	return deepCopyValue(lookup(tree, path))
}

// NestAtPath wraps value at the given dotted path, producing a tree whose
// only content is that one branch. An empty path returns value itself if
// it is already a map, or a map with key "" otherwise.
func NestAtPath(path string, value interface{}) map[string]interface{} {
	segments := splitPath(path)
	if len(segments) == 0 {
		if m, ok := value.(map[string]interface{}); ok {
			return m
		}
		return map[string]interface{}{"": value}
	}

	var build func(i int) interface{}
	build = func(i int) interface{} {
		if i == len(segments)-1 {
			return value
		}
		return map[string]interface{}{segments[i+1]: build(i + 1)}
	}

	return map[string]interface{}{segments[0]: build(0)}
}

func lookup(tree map[string]interface{}, path string) interface{} {
	segments := splitPath(path)
	var cur interface{} = map[string]interface{}(tree)
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

func splitPath(path string) []string {
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
	segments = append(segments, path[start:])
	return segments
}

func deepCopy(m map[string]interface{}) Snapshot {
	return Snapshot(deepCopyValue(m).(map[string]interface{}))
}

func deepCopyValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, sub := range vv {
			out[k] = deepCopyValue(sub)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, sub := range vv {
			out[i] = deepCopyValue(sub)
		}
		return out
	default:
		return v
	}
}

// MarshalableError wraps config decode failures: fatal at startup,
// recoverable at runtime (the caller keeps serving t.current).
type MarshalableError struct {
	Path string
	Err  error
}

func (e *MarshalableError) Error() string {
	return fmt.Sprintf("paramtree: deserialize %s: %v", e.Path, e.Err)
}

func (e *MarshalableError) Unwrap() error { return e.Err }

// DecodePatch is a defensive check used by external-command handlers to
// validate that a patch is well-formed JSON before it reaches Merge.
func DecodePatch(b []byte) (map[string]interface{}, error) {
	var v map[string]interface{}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, &MarshalableError{Path: "<patch>", Err: err}
	}
	return v, nil
}
