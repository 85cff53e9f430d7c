package walker

import (
	"context"
	"sort"
	"strconv"

	"github.com/viant/closurecap/introspect"
	"github.com/viant/closurecap/ir"
)

// objectEntryFor implements spec.md §4.4.4 for the two top-level entry
// points that need it: the ordinary-object dispatch step (§4.4.1 step 13)
// and the module-map's capture-by-value branch (§4.5).
func (w *Walker) objectEntryFor(ctx context.Context, value introspect.Value, chains ir.ChainSet) (*ir.Entry, error) {
	oi := ir.NewObjectInfo()
	entry := (&ir.Entry{}).SetObject(oi)

	if chains.CaptureAll() {
		if err := w.materializeAll(ctx, value, oi); err != nil {
			return nil, err
		}
		return entry, nil
	}

	oi.Partial = true
	escalate, err := w.captureSubset(ctx, value, oi, chains)
	if err != nil {
		return nil, err
	}
	if escalate {
		oi.Env = ir.NewOrderedMap()
		oi.Partial = false
		if err := w.materializeAll(ctx, value, oi); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// extendObjectEntry re-runs the subset-capture subroutine against an
// already-cached object Entry when a later visit supplies additional
// property chains (spec.md §4.4.1 step 2).
func (w *Walker) extendObjectEntry(ctx context.Context, value introspect.Value, cached *ir.Entry, chains ir.ChainSet) error {
	escalate, err := w.captureSubset(ctx, value, cached.Object, chains)
	if err != nil {
		return err
	}
	if escalate {
		cached.Object.Env = ir.NewOrderedMap()
		cached.Object.Partial = false
		return w.materializeAll(ctx, value, cached.Object)
	}
	return nil
}

// materializeAll implements the "materialize-all" mode of spec.md §4.4.4:
// every own property (string and symbol keyed), with a pre-installed
// sentinel to guard self-referential layouts.
func (w *Walker) materializeAll(ctx context.Context, value introspect.Value, oi *ir.ObjectInfo) error {
	oi.Partial = false
	descs, err := w.cfg.Introspector.GetOwnPropertyDescriptors(value)
	if err != nil {
		return w.wrapErr(err)
	}
	for _, d := range descs {
		key := descKey(d)
		if oi.Env.Has(key) {
			continue // self-recursive path already resolved to a sentinel
		}
		oi.Env.Set(key, &ir.PropertyInfo{}, ir.NewSentinel())
		info, valEntry, err := w.descEntries(ctx, value, d)
		if err != nil {
			return err
		}
		oi.Env.Set(key, info, valEntry)
	}
	if oi.Proto == nil {
		if proto := w.cfg.Introspector.GetPrototypeOf(value); proto != nil &&
			!w.cfg.Introspector.Identity(proto, w.cfg.DefaultObjectPrototype) {
			protoEntry, err := w.entryFor(ctx, proto, nil)
			if err != nil {
				return err
			}
			oi.Proto = protoEntry
		}
	}
	return nil
}

// captureSubset implements the "subset-capture" mode of spec.md §4.4.4: for
// each distinct first-step name observed in chains, recurse with the tail
// chains; applies the receiver-escape rule (§4.4.3) per property and
// reports whether the caller must redo the whole object in materialize-all
// mode.
func (w *Walker) captureSubset(ctx context.Context, value introspect.Value, oi *ir.ObjectInfo, chains ir.ChainSet) (escalate bool, err error) {
	type group struct {
		tails      []ir.CapturedPropertyChain
		invokedEnd bool
	}
	groups := map[string]*group{}
	var order []string
	for _, c := range chains {
		name, ok := c.FirstName()
		if !ok {
			continue
		}
		g, seen := groups[name]
		if !seen {
			g = &group{}
			groups[name] = g
			order = append(order, name)
		}
		tail := c.Tail()
		g.tails = append(g.tails, tail)
		if len(c.Steps) == 1 && c.Steps[0].Invoked {
			g.invokedEnd = true
		}
	}

	for _, name := range order {
		key := ir.NameKey(name)
		if oi.Env.Has(key) {
			continue
		}
		d, found := w.findOwnDescriptor(value, name)
		if !found {
			continue // property doesn't exist on value; nothing to capture
		}
		g := groups[name]

		oi.Env.Set(key, &ir.PropertyInfo{}, ir.NewSentinel())

		var info *ir.PropertyInfo
		var valEntry *ir.Entry
		if d.Get != nil || d.Set != nil {
			info = &ir.PropertyInfo{Configurable: d.Configurable, Enumerable: d.Enumerable, Writable: d.Writable}
			if d.Get != nil {
				if info.Get, err = w.entryFor(ctx, d.Get, nil); err != nil {
					return false, err
				}
			}
			if d.Set != nil {
				if info.Set, err = w.entryFor(ctx, d.Set, nil); err != nil {
					return false, err
				}
			}
		} else {
			info = &ir.PropertyInfo{HasValue: true, Configurable: d.Configurable, Enumerable: d.Enumerable, Writable: d.Writable}
			raw := w.cfg.Introspector.GetOwnProperty(value, d)
			nested := nestedChainSet(g.tails)
			if valEntry, err = w.entryFor(ctx, raw, nested); err != nil {
				return false, err
			}
		}
		oi.Env.Set(key, info, valEntry)

		if g.invokedEnd && propertyUsesNonLexicalReceiver(info, valEntry) {
			return true, nil
		}
	}
	return false, nil
}

// nestedChainSet turns a property's observed tail chains into the
// ChainSet passed to the nested entryFor call. A tail with zero remaining
// steps means the access ended exactly at this property (used whole, or
// invoked) — mixed with any other tail that does drill further in, the
// conservative choice is to capture the nested value whole rather than
// under-capture it.
func nestedChainSet(tails []ir.CapturedPropertyChain) ir.ChainSet {
	for _, t := range tails {
		if len(t.Steps) == 0 {
			return nil
		}
	}
	return ir.ChainSet(tails)
}

// propertyUsesNonLexicalReceiver implements the check inside spec.md
// §4.4.3: a callable property (or an accessor's get/set) whose
// usesNonLexicalReceiver flag is set forces full materialization of the
// enclosing object.
func propertyUsesNonLexicalReceiver(info *ir.PropertyInfo, valEntry *ir.Entry) bool {
	if valEntry != nil && valEntry.Tag == ir.TagFunction && valEntry.Function.UsesNonLexicalReceiver {
		return true
	}
	if info.IsAccessor() {
		if info.Get != nil && info.Get.Tag == ir.TagFunction && info.Get.Function.UsesNonLexicalReceiver {
			return true
		}
		if info.Set != nil && info.Set.Tag == ir.TagFunction && info.Set.Function.UsesNonLexicalReceiver {
			return true
		}
	}
	return false
}

// findOwnDescriptor looks up value's own descriptor named name.
func (w *Walker) findOwnDescriptor(value introspect.Value, name string) (introspect.PropertyDescriptor, bool) {
	descs, err := w.cfg.Introspector.GetOwnPropertyDescriptors(value)
	if err != nil {
		return introspect.PropertyDescriptor{}, false
	}
	for _, d := range descs {
		if !d.IsSymbol && d.Name == name {
			return d, true
		}
	}
	return introspect.PropertyDescriptor{}, false
}

// arrayEntry implements spec.md §4.4.1 steps 11-12: iterate own
// numeric-keyed properties (skipping length), preserving sparsity; an
// arguments-like object (detected upstream by its class tag) is emitted
// the same way, as a dense array.
func (w *Walker) arrayEntry(ctx context.Context, value introspect.Value) (*ir.Entry, error) {
	descs, err := w.cfg.Introspector.GetOwnPropertyDescriptors(value)
	if err != nil {
		return nil, w.wrapErr(err)
	}
	var elems []ir.ArrayElement
	length := 0
	for _, d := range descs {
		if d.IsSymbol {
			continue
		}
		if d.Name == "length" {
			if f, ok := w.cfg.Introspector.GetOwnProperty(value, d).(float64); ok {
				length = int(f)
			}
			continue
		}
		idx, ok := parseArrayIndex(d.Name)
		if !ok {
			continue
		}
		raw := w.cfg.Introspector.GetOwnProperty(value, d)
		valEntry, err := w.entryFor(ctx, raw, nil)
		if err != nil {
			return nil, err
		}
		elems = append(elems, ir.ArrayElement{Index: idx, Value: valEntry})
	}
	sort.Slice(elems, func(i, j int) bool { return elems[i].Index < elems[j].Index })
	entry := (&ir.Entry{}).SetArray(elems)
	entry.ArrayLength = length
	return entry, nil
}

func parseArrayIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return n, true
}
