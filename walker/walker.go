// Package walker implements the Graph Walker (component D): traversal of
// the live object graph rooted at a target callable into the normalized
// ir.Entry IR, enforcing single-visit invariants, cycle tolerance, and
// selective property materialization (spec.md §4.4). Grounded on the
// teacher's analyzer.Analyzer (a single struct carrying the parser, caches,
// and plugin hooks, with methods spread across analyzer.go/node.go/
// package.go) as the idiomatic shape for a stateful multi-method walker.
package walker

import (
	"context"
	"math"

	"github.com/viant/closurecap/globals"
	"github.com/viant/closurecap/introspect"
	"github.com/viant/closurecap/ir"
	"github.com/viant/closurecap/modulemap"
	"github.com/viant/closurecap/syntax"
)

// Config bundles the Walker's fixed collaborators and policy knobs.
type Config struct {
	Introspector  introspect.Introspector
	SyntaxService introspect.SyntaxService
	Modules       *modulemap.Map

	// GlobalNames are passed through to the Free-Variable Analyzer's
	// built-in filtering pass (spec.md §4.2).
	GlobalNames []string

	// DefaultFunctionPrototype / DefaultObjectPrototype are the intrinsics
	// against which "non-default prototype" decisions (§3.2, §3.3, §4.4.2
	// step 5) are made.
	DefaultFunctionPrototype introspect.Value
	DefaultObjectPrototype   introspect.Value

	// Serialize is the caller's inclusion predicate (§4.4.1 step 5); nil
	// means "serialize everything".
	Serialize func(value introspect.Value) bool

	// AllowSecrets opts into capturing secret-flagged deferred values
	// without failing (§7 "Secret leak").
	AllowSecrets bool

	// Seeds pre-populates the cache before the first entryFor call
	// (spec.md §4.6); typically built via globals.Build.
	Seeds []globals.Seed

	// OutputWrapperInstance is a live, empty (value=undefined) instance of
	// the host's serialized-output wrapper class, used to derive the
	// wrapper's canonical Entry shape before splicing in a real resolved
	// value (spec.md §4.4.5).
	OutputWrapperInstance introspect.Value
}

// Walker implements the Graph Walker (component D).
type Walker struct {
	cfg Config

	ctx *ir.Context

	normalizer    *syntax.Normalizer
	analyzer      *syntax.CaptureAnalyzer
	superRewriter *syntax.SuperRewriter
}

// New returns a Walker ready for a single top-level Serialize call.
func New(cfg Config) *Walker {
	return &Walker{
		cfg:           cfg,
		ctx:           ir.NewContext(cfg.Introspector.Identity),
		normalizer:    syntax.NewNormalizer(cfg.SyntaxService),
		analyzer:      syntax.NewCaptureAnalyzer(cfg.SyntaxService, cfg.GlobalNames),
		superRewriter: syntax.NewSuperRewriter(cfg.SyntaxService),
	}
}

// Context returns the per-serialization ir.Context, the value every
// SerializationError carries as its ContextRef.
func (w *Walker) Context() *ir.Context { return w.ctx }

// Serialize walks target (a callable) and returns its root Entry. This is
// the single public entry point spec.md §5 describes as "one call, one
// Context, one walk".
func (w *Walker) Serialize(ctx context.Context, target introspect.Value) (*ir.Entry, error) {
	for _, seed := range w.cfg.Seeds {
		if seed.Value == nil {
			continue
		}
		w.ctx.Insert(seed.Value, (&ir.Entry{}).SetExpr(seed.Expr))
	}

	entry, err := w.entryFor(ctx, target, nil)
	if err != nil {
		return nil, err
	}
	if w.ctx.ContainsSecrets && !w.cfg.AllowSecrets {
		return nil, w.newError(ErrKindSecretLeak, "a secret value was captured; pass AllowSecrets to opt in")
	}
	return entry, nil
}

// entryFor implements the dispatch order of spec.md §4.4.1.
func (w *Walker) entryFor(ctx context.Context, value introspect.Value, chains ir.ChainSet) (*ir.Entry, error) {
	// Step 1: numbers must be classified before the cache lookup, so -0
	// doesn't collide with 0 in an identity map.
	if f, ok := value.(float64); ok {
		if entry, handled := numberEntry(f); handled {
			return entry, nil
		}
	}

	// Step 2: cache hit. A partially-captured object Entry may need more
	// fields than the first visit asked for — including escalation to full
	// materialization when the new visit carries no chain restriction.
	if cached, ok := w.ctx.Lookup(value); ok {
		if cached.Tag == ir.TagObject && cached.Object.Partial {
			if chains.CaptureAll() {
				if err := w.materializeAll(ctx, value, cached.Object); err != nil {
					return nil, err
				}
			} else if err := w.extendObjectEntry(ctx, value, cached, chains); err != nil {
				return nil, err
			}
		}
		return cached, nil
	}

	// Step 3: non-capturable callable substitution. The substitute is a
	// walker-synthesized callable that throws at runtime; dispatch
	// continues with it while the cache slot stays keyed by the original
	// value, so revisits reuse the substitute's Entry.
	dispatchValue := value
	substituted := false
	if w.cfg.Introspector.Classify(value) == introspect.KindCallable && w.cfg.Introspector.IsDoNotCapture(value) {
		dispatchValue = newThrowingSubstitute(w.describe(value))
		substituted = true
	}

	// Step 5 (do-not-capture predicates) is checked before the placeholder
	// insertion: a rejected value is cached directly as its undefined Entry,
	// never as a placeholder. The substitute carries no markers and skips it.
	if !substituted && w.isDoNotCapture(value) {
		entry := &ir.Entry{}
		entry.SetJSON(ir.Undefined{})
		w.ctx.Insert(value, entry)
		return entry, nil
	}

	// Step 4: insert an empty placeholder before recursing, breaking
	// cycles (spec.md §3.7, §4.4.1 step 4).
	placeholder := ir.NewSentinel()
	w.ctx.Insert(value, placeholder)

	entry, err := w.dispatch(ctx, dispatchValue, chains)
	if err != nil {
		return nil, err
	}
	*placeholder = *entry
	return placeholder, nil
}

// dispatch implements steps 6-13 of spec.md §4.4.1, given that steps 1-5
// have already run and a cache slot exists for value.
func (w *Walker) dispatch(ctx context.Context, value introspect.Value, chains ir.ChainSet) (*ir.Entry, error) {
	// A throwing substitute (§4.4.1 step 3) is walker-synthesized, not a
	// host value, so it is classified here rather than by the Introspector.
	// Substitutes with identical code share one FunctionInfo via the
	// simple-function registry, the same dedup an ordinary captureless
	// callable gets from §4.4.2 step 10.
	if stub, ok := value.(*throwingSubstitute); ok {
		if existing, found := w.ctx.FindSimpleFunction(stub.code, false); found {
			return (&ir.Entry{}).SetFunction(existing), nil
		}
		fi := ir.NewFunctionInfo(stub.code, 0)
		w.ctx.SimpleFunctions = append(w.ctx.SimpleFunctions, fi)
		return (&ir.Entry{}).SetFunction(fi), nil
	}

	kind := w.cfg.Introspector.Classify(value)

	switch kind {
	case introspect.KindUndefined:
		return (&ir.Entry{}).SetJSON(ir.Undefined{}), nil
	case introspect.KindNull:
		return (&ir.Entry{}).SetJSON(nil), nil
	case introspect.KindBoolean, introspect.KindString, introspect.KindNumber:
		// The four non-JSON-representable numbers were already routed to
		// expr entries by step 1; anything left is an ordinary finite double.
		return (&ir.Entry{}).SetJSON(value), nil
	case introspect.KindBigInt:
		return (&ir.Entry{}).SetExpr(w.cfg.Introspector.BigIntText(value) + "n"), nil
	case introspect.KindRegexp:
		src, flags := w.cfg.Introspector.RegexpParts(value)
		return (&ir.Entry{}).SetRegexp(src, flags), nil
	}

	// Step 7: module lookup.
	if w.cfg.Modules != nil {
		decision, err := w.cfg.Modules.Resolve(ctx, value)
		if err != nil {
			return nil, w.wrapErr(err)
		}
		if decision.IsModule {
			if decision.DeploymentOnly {
				defer w.ctx.PushFrame(ir.Frame{DeploymentOnly: true, CapturedModule: decision.Name})()
			}
			if decision.CaptureByValue {
				return w.objectEntryFor(ctx, value, chains)
			}
			return (&ir.Entry{}).SetModule(decision.Name), nil
		}
	}

	switch kind {
	case introspect.KindCallable:
		return w.analyzeFunction(ctx, value)
	case introspect.KindOutput:
		return w.wrapOutput(ctx, value)
	case introspect.KindPromise:
		resolved, err := w.cfg.Introspector.ResolvePromise(ctx, value)
		if err != nil {
			return nil, w.wrapErr(err)
		}
		inner, err := w.entryFor(ctx, resolved, nil)
		if err != nil {
			return nil, err
		}
		return (&ir.Entry{}).SetPromise(inner), nil
	case introspect.KindArray, introspect.KindArgumentsLike:
		return w.arrayEntry(ctx, value)
	default:
		return w.objectEntryFor(ctx, value, chains)
	}
}

func numberEntry(f float64) (*ir.Entry, bool) {
	switch {
	case f == 0 && math.Signbit(f):
		return (&ir.Entry{}).SetExpr("-0"), true
	case math.IsNaN(f):
		return (&ir.Entry{}).SetExpr("NaN"), true
	case math.IsInf(f, 1):
		return (&ir.Entry{}).SetExpr("Infinity"), true
	case math.IsInf(f, -1):
		return (&ir.Entry{}).SetExpr("-Infinity"), true
	default:
		return nil, false
	}
}

func (w *Walker) isDoNotCapture(value introspect.Value) bool {
	if w.cfg.Serialize != nil && !w.cfg.Serialize(value) {
		return true
	}
	if w.cfg.Introspector.IsDoNotCapture(value) {
		return true
	}
	if w.cfg.Introspector.Classify(value) == introspect.KindCallable {
		for ancestor := w.cfg.Introspector.GetPrototypeOf(value); ancestor != nil; ancestor = w.cfg.Introspector.GetPrototypeOf(ancestor) {
			if w.cfg.Introspector.IsDoNotCapture(ancestor) {
				return true
			}
			if w.cfg.Introspector.Identity(ancestor, w.cfg.DefaultFunctionPrototype) {
				break
			}
		}
	}
	return false
}

// throwingSubstitute is the replacement callable for a doNotCapture-marked
// function (spec.md §4.4.1 step 3): a synthesized value, never a host one,
// whose code throws at runtime naming the original.
type throwingSubstitute struct {
	code string
}

func newThrowingSubstitute(describedAs string) *throwingSubstitute {
	return &throwingSubstitute{
		code: "function() { throw new Error(\"cannot capture " + describedAs + ": marked doNotCapture\"); }",
	}
}

// describe returns the source file of value, used only in the throwing
// stub's message, or "function" when no file is known; the callable's own
// name is not looked up.
func (w *Walker) describe(value introspect.Value) string {
	loc := w.cfg.Introspector.GetSourceLocation(value)
	if loc.File != "" {
		return loc.File
	}
	return "function"
}

func (w *Walker) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SerializationError); ok {
		return se
	}
	return w.newError(ErrKindBrokenInvariant, err.Error())
}
