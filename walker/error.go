package walker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrKind enumerates spec.md §7's error kinds as a closed enum rather than
// distinct error types, so a single errors.As(err, &serErr) call recovers
// every kind and callers switch on Kind.
type ErrKind int

const (
	ErrKindParseFailure ErrKind = iota
	ErrKindMissingCapture
	ErrKindUnparseableForm
	ErrKindSecretLeak
	ErrKindBrokenInvariant
)

// SerializationError is the structured exception spec.md §6.4 describes:
// final message, an opaque context resource reference, and a flag telling
// the host's error formatter to suppress the underlying stack trace.
type SerializationError struct {
	Kind ErrKind

	Message string

	// ContextRef is the walker's per-serialization *ir.Context; no
	// caller-supplied context reference is carried.
	ContextRef interface{}

	SuppressStack bool

	cause error
}

func (e *SerializationError) Error() string {
	return e.Message
}

func (e *SerializationError) Unwrap() error { return e.cause }

func (w *Walker) newError(kind ErrKind, message string) *SerializationError {
	return &SerializationError{
		Kind:          kind,
		Message:       w.buildTrace(message),
		ContextRef:    w.ctx,
		SuppressStack: true,
	}
}

func (w *Walker) newErrorWithCause(kind ErrKind, message string, cause error) *SerializationError {
	se := w.newError(kind, message)
	se.cause = errors.WithStack(cause)
	return se
}

// newErrorWithSource is like newErrorWithCause but also appends up to five
// lines of the offending source text to the trace, per spec.md §7 ("the
// final lines include up to five lines of the offending source").
func (w *Walker) newErrorWithSource(kind ErrKind, message string, cause error, source string) *SerializationError {
	se := w.newErrorWithCause(kind, message, cause)
	if snippet := sourceSnippet(source, 5); snippet != "" {
		se.Message += "\n--- offending source ---\n" + snippet
	}
	return se
}

// sourceSnippet returns the first maxLines lines of source, trimming a
// trailing newline-only artifact.
func sourceSnippet(source string, maxLines int) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

// buildTrace constructs the multi-line human-readable trace spec.md §7
// requires: walking from the outermost function through every intermediate
// captured variable/module/function down to the failing site, with an
// extra hint for deploymentOnlyModule frames.
func (w *Walker) buildTrace(message string) string {
	var b strings.Builder
	b.WriteString(message)
	for _, f := range w.ctx.Frames {
		b.WriteString("\n  at ")
		switch {
		case f.CapturedVariable != "":
			fmt.Fprintf(&b, "captured variable %q", f.CapturedVariable)
		case f.CapturedModule != "":
			fmt.Fprintf(&b, "captured module %q", f.CapturedModule)
			if f.DeploymentOnly {
				b.WriteString(" (deployment-only module: its internals may not be reconstructible in the target environment; consider moving the require() inside the function)")
			}
		case f.FunctionName != "":
			fmt.Fprintf(&b, "function %s", f.FunctionName)
		default:
			b.WriteString("function")
		}
		if f.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", f.File, f.Line)
		}
	}
	return b.String()
}
