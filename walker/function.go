package walker

import (
	"context"
	"fmt"

	"github.com/viant/closurecap/introspect"
	"github.com/viant/closurecap/ir"
	"github.com/viant/closurecap/syntax"
)

// analyzeFunction implements spec.md §4.4.2: normalize, analyze captures,
// recurse into each captured value, decide the proto field, wire up
// super-rewriting for derived-class members, and apply the simple-function
// dedup rule.
func (w *Walker) analyzeFunction(ctx context.Context, callable introspect.Value) (*ir.Entry, error) {
	text, err := w.cfg.Introspector.GetSourceText(callable)
	if err != nil {
		return nil, w.newErrorWithCause(ErrKindParseFailure, "failed to read function source text", err)
	}

	normalized, err := w.normalizer.Normalize(text)
	if err != nil {
		return nil, w.newErrorWithSource(ErrKindUnparseableForm, err.Error(), err, text)
	}

	loc := w.cfg.Introspector.GetSourceLocation(callable)
	pop := w.ctx.PushFrame(ir.Frame{FunctionName: displayName(normalized), File: loc.File, Line: loc.Line})
	defer pop()

	captures, err := w.analyzer.Analyze(normalized.FuncExprWithoutName)
	if err != nil {
		return nil, w.newErrorWithSource(ErrKindParseFailure, err.Error(), err, normalized.FuncExprWithoutName)
	}

	fi := ir.NewFunctionInfo(normalized.FuncExprWithoutName, w.cfg.Introspector.Arity(callable))
	fi.Name = normalized.DeclarationName
	fi.UsesNonLexicalReceiver = captures.UsesNonLexicalReceiver
	fi.IsArrow = normalized.IsArrowFunction
	entry := (&ir.Entry{}).SetFunction(fi)

	if err := w.captureInto(ctx, callable, fi, captures.Required, captures.RequiredOrder, true); err != nil {
		return nil, err
	}
	if err := w.captureInto(ctx, callable, fi, captures.Optional, captures.OptionalOrder, false); err != nil {
		return nil, err
	}

	// Step 5: proto field.
	if !normalized.IsAsync {
		if proto := w.cfg.Introspector.GetPrototypeOf(callable); proto != nil &&
			!w.cfg.Introspector.Identity(proto, w.cfg.DefaultFunctionPrototype) &&
			!w.protoChainHasNonCapturable(proto) {
			protoEntry, err := w.entryFor(ctx, proto, nil)
			if err != nil {
				return nil, err
			}
			fi.Proto = protoEntry
		}
	}

	// Step 6: derived class constructor registers its own members against
	// the base-class Entry, rewrites its own super(...) calls, and binds
	// __super so the rewritten body resolves (spec.md §4.3).
	isDerivedClass := normalized.Kind == syntax.KindClassConstructor && fi.Proto != nil
	if isDerivedClass {
		w.registerClassMembers(callable, fi.Proto)
		if rewritten, err := w.superRewriter.Rewrite(fi.Code, false); err == nil {
			fi.Code = rewritten
		}
		fi.CapturedValues.Set(ir.NameKey("__super"), ir.DefaultDataProperty(), fi.Proto)
	}

	// Step 7: own properties, skipping length/name and the default
	// prototype field.
	descs, err := w.cfg.Introspector.GetOwnPropertyDescriptors(callable)
	if err != nil {
		return nil, w.wrapErr(err)
	}
	for _, d := range descs {
		if d.IsSymbol {
			if err := w.addFunctionEnvSlot(ctx, callable, fi, d); err != nil {
				return nil, err
			}
			continue
		}
		switch d.Name {
		case "length", "name":
			continue
		case "prototype":
			if d.HasValue {
				protoVal := w.cfg.Introspector.GetOwnProperty(callable, d)
				if w.isDefaultFunctionPrototypeObject(protoVal, callable) {
					continue
				}
			}
		}
		if err := w.addFunctionEnvSlot(ctx, callable, fi, d); err != nil {
			return nil, err
		}
	}

	// Step 8: this callable may itself have been registered as a class
	// member by an ancestor's step 6.
	if base, static, ok := w.ctx.BaseOf(callable); ok {
		fi.CapturedValues.Set(ir.NameKey("__super"), ir.DefaultDataProperty(), base)
		if rewritten, err := w.superRewriter.Rewrite(fi.Code, static); err == nil {
			fi.Code = rewritten
		}
	}

	// Step 9: self-capture for named function expressions/declarations, so
	// recursive calls still resolve after name-stripping. A class
	// constructor's synthetic "constructor" name is never referenced from
	// its own body and gets no self-binding.
	if normalized.DeclarationName != "" && !normalized.IsArrowFunction && normalized.Kind != syntax.KindClassConstructor {
		if !fi.CapturedValues.Has(ir.NameKey(normalized.DeclarationName)) {
			fi.CapturedValues.Set(ir.NameKey(normalized.DeclarationName), ir.DefaultDataProperty(), entry)
		}
	}

	// Step 10: simple-function dedup.
	if fi.IsSimple() {
		if existing, ok := w.ctx.FindSimpleFunction(fi.Code, fi.UsesNonLexicalReceiver); ok {
			return (&ir.Entry{}).SetFunction(existing), nil
		}
		w.ctx.SimpleFunctions = append(w.ctx.SimpleFunctions, fi)
	}

	return entry, nil
}

func displayName(n *syntax.NormalizedForm) string {
	if n.DeclarationName != "" {
		return n.DeclarationName
	}
	return "<anonymous>"
}

// captureInto resolves each free variable in names against callable's
// scope chain and recurses the walker on the resulting value, passing its
// observed property chains as a hint (spec.md §4.4.2 steps 3-4). Iteration
// follows the analyzer's first-occurrence order so that capturedValues —
// and the emitted module text — are deterministic (spec.md §5).
func (w *Walker) captureInto(ctx context.Context, callable introspect.Value, fi *ir.FunctionInfo, names map[string]ir.ChainSet, order []string, required bool) error {
	for _, name := range order {
		chains, ok := names[name]
		if !ok {
			continue
		}
		val, err := w.cfg.Introspector.LookupCapturedVariable(callable, name, required)
		if err != nil {
			return w.newErrorWithCause(ErrKindMissingCapture, fmt.Sprintf("missing required capture %q", name), err)
		}
		pop := w.ctx.PushFrame(ir.Frame{CapturedVariable: name})
		valEntry, err := w.entryFor(ctx, val, chains)
		pop()
		if err != nil {
			return err
		}
		fi.CapturedValues.Set(ir.NameKey(name), ir.DefaultDataProperty(), valEntry)
	}
	return nil
}

// addFunctionEnvSlot serializes one own-property descriptor of callable
// into fi.Env (data or accessor).
func (w *Walker) addFunctionEnvSlot(ctx context.Context, callable introspect.Value, fi *ir.FunctionInfo, d introspect.PropertyDescriptor) error {
	key := descKey(d)
	info, valEntry, err := w.descEntries(ctx, callable, d)
	if err != nil {
		return err
	}
	fi.Env.Set(key, info, valEntry)
	return nil
}

func descKey(d introspect.PropertyDescriptor) ir.Key {
	if d.IsSymbol {
		return ir.SymbolKey(d.Symbol)
	}
	return ir.NameKey(d.Name)
}

// descEntries serializes a property descriptor's value or accessor(s).
// Accessors are always serialized (get/set Entries), whether or not the
// property is ever invoked — only the receiver-escape check in object.go
// cares about invocation (spec.md §4.4.4 "Accessors are preserved
// structurally").
func (w *Walker) descEntries(ctx context.Context, owner introspect.Value, d introspect.PropertyDescriptor) (*ir.PropertyInfo, *ir.Entry, error) {
	info := &ir.PropertyInfo{
		Configurable: d.Configurable,
		Enumerable:   d.Enumerable,
		Writable:     d.Writable,
	}
	if d.Get != nil || d.Set != nil {
		if d.Get != nil {
			g, err := w.entryFor(ctx, d.Get, nil)
			if err != nil {
				return nil, nil, err
			}
			info.Get = g
		}
		if d.Set != nil {
			s, err := w.entryFor(ctx, d.Set, nil)
			if err != nil {
				return nil, nil, err
			}
			info.Set = s
		}
		return info, nil, nil
	}
	info.HasValue = true
	raw := w.cfg.Introspector.GetOwnProperty(owner, d)
	valEntry, err := w.entryFor(ctx, raw, nil)
	if err != nil {
		return nil, nil, err
	}
	return info, valEntry, nil
}

// protoChainHasNonCapturable walks from start up the prototype chain
// looking for a doNotCapture-marked ancestor (spec.md §3.2's "descendant of
// a non-capturable ancestor"), stopping at the default function prototype.
func (w *Walker) protoChainHasNonCapturable(start introspect.Value) bool {
	for ancestor := start; ancestor != nil; ancestor = w.cfg.Introspector.GetPrototypeOf(ancestor) {
		if w.cfg.Introspector.IsDoNotCapture(ancestor) {
			return true
		}
		if w.cfg.Introspector.Identity(ancestor, w.cfg.DefaultFunctionPrototype) {
			return false
		}
	}
	return false
}

// isDefaultFunctionPrototypeObject identifies the "prototype" property
// value that should be skipped per spec.md §4.4.2 step 7: "an object whose
// only own property is constructor, and whose constructor property is the
// callable itself".
func (w *Walker) isDefaultFunctionPrototypeObject(protoVal, callable introspect.Value) bool {
	if protoVal == nil {
		return false
	}
	descs, err := w.cfg.Introspector.GetOwnPropertyDescriptors(protoVal)
	if err != nil || len(descs) != 1 {
		return false
	}
	d := descs[0]
	if d.IsSymbol || d.Name != "constructor" || !d.HasValue {
		return false
	}
	ctor := w.cfg.Introspector.GetOwnProperty(protoVal, d)
	return w.cfg.Introspector.Identity(ctor, callable)
}

// registerClassMembers implements spec.md §4.4.2 step 6: map every own
// method of callable (static) and of callable's prototype-property object
// (instance) to baseEntry, so that the later visit to each member (step 8,
// reached via step 7's own-property recursion) can install __super.
func (w *Walker) registerClassMembers(callable introspect.Value, baseEntry *ir.Entry) {
	if staticDescs, err := w.cfg.Introspector.GetOwnPropertyDescriptors(callable); err == nil {
		for _, d := range staticDescs {
			if !d.HasValue || d.Name == "prototype" || d.Name == "length" || d.Name == "name" {
				continue
			}
			v := w.cfg.Introspector.GetOwnProperty(callable, d)
			if w.cfg.Introspector.Classify(v) == introspect.KindCallable {
				w.ctx.RecordMember(true, v, baseEntry)
			}
		}
	}
	protoDesc, ok := w.findOwnDescriptor(callable, "prototype")
	if !ok || !protoDesc.HasValue {
		return
	}
	protoObj := w.cfg.Introspector.GetOwnProperty(callable, protoDesc)
	instanceDescs, err := w.cfg.Introspector.GetOwnPropertyDescriptors(protoObj)
	if err != nil {
		return
	}
	for _, d := range instanceDescs {
		if !d.HasValue || (!d.IsSymbol && d.Name == "constructor") {
			continue
		}
		v := w.cfg.Introspector.GetOwnProperty(protoObj, d)
		if w.cfg.Introspector.Classify(v) == introspect.KindCallable {
			w.ctx.RecordMember(false, v, baseEntry)
		}
	}
}
