package walker

import (
	"context"

	"github.com/viant/closurecap/ir"
)

// wrapOutput implements spec.md §4.4.5: resolve a deferred ("Output")
// value, splice it into the canonical serialized-output wrapper shape, and
// flag the Context's containsSecrets bit if the handle was marked secret.
func (w *Walker) wrapOutput(ctx context.Context, value interface{}) (*ir.Entry, error) {
	inner, secret, err := w.cfg.Introspector.ResolveOutput(ctx, value)
	if err != nil {
		return nil, w.wrapErr(err)
	}
	valEntry, err := w.entryFor(ctx, inner, nil)
	if err != nil {
		return nil, err
	}
	if secret {
		w.ctx.ContainsSecrets = true
	}

	canonical, err := w.entryFor(ctx, w.cfg.OutputWrapperInstance, nil)
	if err != nil {
		return nil, err
	}
	if canonical.Tag != ir.TagObject || canonical.Object.Env.Len() != 1 {
		return nil, w.newError(ErrKindBrokenInvariant, `serialized-output wrapper shape must have exactly one property "value"`)
	}
	slot, ok := canonical.Object.Env.Get(ir.NameKey("value"))
	if !ok {
		return nil, w.newError(ErrKindBrokenInvariant, `serialized-output wrapper shape must have exactly one property "value"`)
	}

	// Each output gets its own wrapper object Entry; splicing into the
	// cached canonical shape would alias every output to the last resolved
	// value.
	oi := ir.NewObjectInfo()
	oi.Proto = canonical.Object.Proto
	oi.Env.Set(ir.NameKey("value"), slot.Info, valEntry)

	return (&ir.Entry{}).SetOutput((&ir.Entry{}).SetObject(oi)), nil
}
