package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister    Phase = "register"    // type registration
	PhaseBuild       Phase = "build"       // registry validation
	PhaseLookup      Phase = "lookup"      // registry lookup
	PhaseConstruct   Phase = "construct"   // instance construction
	PhaseDestruct    Phase = "destruct"    // instance destruction
	PhaseCopy        Phase = "copy"        // instance copy
	PhaseEquals      Phase = "equals"      // instance comparison
	PhaseText        Phase = "text"        // to_string / from_string
	PhaseSerialize   Phase = "serialize"   // instance to bytes
	PhaseDeserialize Phase = "deserialize" // bytes to instance
	PhaseRange       Phase = "range"       // range validation
	PhaseMessage     Phase = "message"     // message dispatch
	PhaseMemory      Phase = "memory"      // heap access
	PhaseLoad        Phase = "load"        // type database loading
	PhaseParse       Phase = "parse"       // document parsing
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicateID    Kind = "duplicate_id"
	KindUnknownType    Kind = "unknown_type"
	KindUnsupported    Kind = "unsupported"
	KindRangeViolation Kind = "range_violation"
	KindCyclicOrdering Kind = "cyclic_ordering"
	KindSizeMismatch   Kind = "size_mismatch"
	KindMalformedInput Kind = "malformed_input"
	KindInvalidFlags   Kind = "invalid_flags"
	KindInvalidLayout  Kind = "invalid_layout"
	KindDuplicateName  Kind = "duplicate_name"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNilPointer     Kind = "nil_pointer"
	KindSealed         Kind = "sealed"
	KindTypeMismatch   Kind = "type_mismatch"
	KindAllocation     Kind = "allocation"
	KindNotFound       Kind = "not_found"
	KindHandler        Kind = "handler_failed"
)

// Sentinels match any error of their kind regardless of phase.
var (
	ErrDuplicateID    = &Error{Kind: KindDuplicateID}
	ErrUnknownType    = &Error{Kind: KindUnknownType}
	ErrUnsupported    = &Error{Kind: KindUnsupported}
	ErrRangeViolation = &Error{Kind: KindRangeViolation}
	ErrCyclicOrdering = &Error{Kind: KindCyclicOrdering}
	ErrSizeMismatch   = &Error{Kind: KindSizeMismatch}
	ErrMalformedInput = &Error{Kind: KindMalformedInput}
	ErrInvalidFlags   = &Error{Kind: KindInvalidFlags}
	ErrInvalidLayout  = &Error{Kind: KindInvalidLayout}
	ErrDuplicateName  = &Error{Kind: KindDuplicateName}
	ErrOutOfBounds    = &Error{Kind: KindOutOfBounds}
	ErrNilPointer     = &Error{Kind: KindNilPointer}
	ErrSealed         = &Error{Kind: KindSealed}
	ErrTypeMismatch   = &Error{Kind: KindTypeMismatch}
	ErrAllocation     = &Error{Kind: KindAllocation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrHandler        = &Error{Kind: KindHandler}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a
// phase matches on kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase == "" {
			return e.Kind == t.Kind
		}
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the attribute path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the type name
func (b *Builder) Type(name string) *Builder {
	b.err.Type = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// At prefixes the path of err with segments as it propagates out of a
// nested traversal. Errors of other types are returned unchanged.
func At(err error, segments ...string) error {
	if err == nil || len(segments) == 0 {
		return err
	}
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Path = make([]string, 0, len(segments)+len(e.Path))
	cp.Path = append(cp.Path, segments...)
	cp.Path = append(cp.Path, e.Path...)
	return &cp
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Convenience constructors for common error patterns

// DuplicateID creates a duplicate registration error
func DuplicateID(id uint32, name string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindDuplicateID,
		Type:   name,
		Detail: fmt.Sprintf("type id %d already registered", id),
		Value:  id,
	}
}

// UnknownType creates an unknown type error for an id or a named reference
func UnknownType(phase Phase, ref string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownType,
		Detail: fmt.Sprintf("type %s is not registered", ref),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, typeName, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Type:   typeName,
		Detail: fmt.Sprintf("operation %s not supported", op),
	}
}

// RangeViolation creates a range check failure
func RangeViolation(path []string, value, minValue, maxValue string) *Error {
	return &Error{
		Phase:  PhaseRange,
		Kind:   KindRangeViolation,
		Path:   path,
		Detail: fmt.Sprintf("value %s outside [%s, %s]", value, minValue, maxValue),
		Value:  value,
	}
}

// CyclicOrdering creates a cyclic ordering error
func CyclicOrdering(typeName, detail string) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindCyclicOrdering,
		Type:   typeName,
		Detail: detail,
	}
}

// SizeMismatch creates a serialized size mismatch error
func SizeMismatch(typeName string, declared, actual uint32) *Error {
	return &Error{
		Phase:  PhaseSerialize,
		Kind:   KindSizeMismatch,
		Type:   typeName,
		Detail: fmt.Sprintf("declared %d bytes, wrote %d", declared, actual),
	}
}

// Malformed creates a malformed input error
func Malformed(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedInput,
		Path:   path,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) exceeds size %d", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// NilPointer creates a null address error
func NilPointer(phase Phase, path []string, typeName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		Type:   typeName,
		Detail: "null address",
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// TypeMismatch creates a kind or variant mismatch error
func TypeMismatch(phase Phase, typeName, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Type:   typeName,
		Detail: fmt.Sprintf("expected %s", want),
	}
}

// InvalidFlags creates an attribute flag validation error
func InvalidFlags(typeName, attr string, flags, mask uint32) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindInvalidFlags,
		Type:   typeName,
		Path:   []string{attr},
		Detail: fmt.Sprintf("flags 0x%x outside valid mask 0x%x", flags, mask),
		Value:  flags,
	}
}

// InvalidLayout creates a layout validation error
func InvalidLayout(typeName, detail string) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindInvalidLayout,
		Type:   typeName,
		Detail: detail,
	}
}

// DuplicateName creates a duplicate member name error
func DuplicateName(phase Phase, typeName, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicateName,
		Type:   typeName,
		Detail: fmt.Sprintf("duplicate name %q", name),
		Value:  name,
	}
}

// Sealed creates an error for mutations of a built registry
func Sealed(detail string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindSealed,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a type database loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMalformedInput,
		Detail: detail,
		Cause:  cause,
	}
}
