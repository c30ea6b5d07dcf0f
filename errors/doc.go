// Package errors provides structured error types for the rtti module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the attribute path, the type name and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDeserialize, errors.KindMalformedInput).
//		Path("transform", "scale").
//		Type("float").
//		Detail("need %d bytes, have %d", 4, 1).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Unsupported(errors.PhaseCopy, "Handle", "copy")
//	err := errors.RangeViolation(path, "300", "0", "255")
//
// Every kind has a sentinel that matches regardless of phase:
//
//	if errors.Is(err, rttierrors.ErrUnsupported) { ... }
//
// Nested traversals prefix the path with At as the error propagates.
package errors
