package engine

import (
	"bytes"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/internal/scalar"
	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/types"
)

// Engine runs the generic operations over instances described by the
// types of one registry. It holds no per-call state and is safe for
// concurrent use on distinct instances.
type Engine struct {
	reg    *registry.Registry
	logger *zap.Logger
}

var _ types.Dispatcher = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the package logger for one engine.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over a built registry.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{reg: reg, logger: Logger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine resolves compounds with.
func (e *Engine) Registry() *registry.Registry { return e.reg }

func (e *Engine) unsupported(phase errors.Phase, t *types.Type, op string) error {
	e.logger.Debug("unsupported operation",
		zap.String("type", t.Name()),
		zap.Stringer("kind", t.Kind()),
		zap.String("op", op))
	return errors.Unsupported(phase, t.Name(), op)
}

func (e *Engine) info(phase errors.Phase, t *types.Type) (*registry.CompoundInfo, error) {
	ci := e.reg.Info(t)
	if ci == nil {
		return nil, errors.UnknownType(phase, t.Name()+" (registry not built or type not registered)")
	}
	return ci, nil
}

// New allocates and constructs an instance of t.
func (e *Engine) New(t *types.Type, h rtti.Heap) (uint32, error) {
	l := t.Layout()
	addr, err := h.Alloc(l.Size, l.Align)
	if err != nil {
		return 0, err
	}
	if err := e.Construct(t, h, addr); err != nil {
		h.Free(addr, l.Size, l.Align)
		return 0, err
	}
	return addr, nil
}

// Delete destructs and frees an instance created by New.
func (e *Engine) Delete(t *types.Type, h rtti.Heap, addr uint32) error {
	if addr == rtti.Null {
		return nil
	}
	err := e.Destruct(t, h, addr)
	l := t.Layout()
	h.Free(addr, l.Size, l.Align)
	return err
}

// IsKind reports whether t is other or derives from it.
func (e *Engine) IsKind(t, other *types.Type) bool {
	return t.IsKind(other)
}

// Attributes returns the resolved attributes of a compound in
// presentation order.
func (e *Engine) Attributes(t *types.Type) ([]registry.ResolvedAttribute, error) {
	ci, err := e.info(errors.PhaseLookup, t)
	if err != nil {
		return nil, err
	}
	return ci.Ordered, nil
}

func (e *Engine) attribute(phase errors.Phase, t *types.Type, name string) (registry.ResolvedAttribute, error) {
	ci, err := e.info(phase, t)
	if err != nil {
		return registry.ResolvedAttribute{}, err
	}
	ra, ok := ci.Attribute(name)
	if !ok {
		return ra, errors.NotFound(phase, "attribute", t.Name()+"."+name)
	}
	return ra, nil
}

// AttributeAddr returns the address of a raw attribute of obj.
func (e *Engine) AttributeAddr(t *types.Type, obj uint32, name string) (uint32, error) {
	ra, err := e.attribute(errors.PhaseLookup, t, name)
	if err != nil {
		return 0, err
	}
	if ra.Attribute.IsProperty() {
		return 0, errors.New(errors.PhaseLookup, errors.KindUnsupported).
			Path(name).
			Type(t.Name()).
			Detail("property has no address").
			Build()
	}
	return obj + ra.Offset(), nil
}

// GetAttribute copies the named attribute of obj into out, a constructed
// instance of the attribute's type.
func (e *Engine) GetAttribute(t *types.Type, h rtti.Heap, obj uint32, name string, out uint32) error {
	ra, err := e.attribute(errors.PhaseCopy, t, name)
	if err != nil {
		return err
	}
	return errors.At(e.getAttr(h, obj, ra, out), name)
}

// SetAttribute assigns the named attribute of obj from in.
func (e *Engine) SetAttribute(t *types.Type, h rtti.Heap, obj uint32, name string, in uint32) error {
	ra, err := e.attribute(errors.PhaseCopy, t, name)
	if err != nil {
		return err
	}
	a := ra.Attribute
	if a.Flags.Has(types.AttrReadOnly) || a.IsComputed() {
		return errors.New(errors.PhaseCopy, errors.KindUnsupported).
			Path(name).
			Type(t.Name()).
			Detail("attribute is read-only").
			Build()
	}
	return errors.At(e.setAttr(h, obj, ra, in), name)
}

func (e *Engine) getAttr(h rtti.Heap, obj uint32, ra registry.ResolvedAttribute, out uint32) error {
	a := ra.Attribute
	if a.Get != nil {
		return a.Get(h, obj+ra.Base, out)
	}
	return e.Copy(a.Type, h, out, obj+ra.Offset())
}

func (e *Engine) setAttr(h rtti.Heap, obj uint32, ra registry.ResolvedAttribute, in uint32) error {
	a := ra.Attribute
	if a.Set != nil {
		return a.Set(h, obj+ra.Base, in)
	}
	return e.Copy(a.Type, h, obj+ra.Offset(), in)
}

// Len returns the number of items in a container.
func (e *Engine) Len(t *types.Type, h rtti.Heap, addr uint32) (uint32, error) {
	c, ok := t.Container()
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseLookup, t.Name(), "container")
	}
	if c.Data.Ops.Len == nil {
		return 0, e.unsupported(errors.PhaseLookup, t, "len")
	}
	return c.Data.Ops.Len(t, h, addr)
}

// Each calls fn with the index and address of every container item,
// driving the container's cursor protocol.
func (e *Engine) Each(t *types.Type, h rtti.Heap, addr uint32, fn func(i, item uint32) error) error {
	c, ok := t.Container()
	if !ok {
		return errors.TypeMismatch(errors.PhaseLookup, t.Name(), "container")
	}
	ops := c.Data.Ops
	if ops.IterStart == nil || ops.IterValid == nil || ops.IterNext == nil || ops.IterDeref == nil {
		return e.unsupported(errors.PhaseLookup, t, "iterate")
	}

	it, err := ops.IterStart(t, h, addr)
	if err != nil {
		return err
	}
	for i := uint32(0); ops.IterValid(h, it); i++ {
		item, err := ops.IterDeref(h, it)
		if err != nil {
			return err
		}
		if err := fn(i, item); err != nil {
			return err
		}
		if err := ops.IterNext(h, &it); err != nil {
			return err
		}
	}
	return nil
}

func zero(h rtti.Heap, addr, size uint32) error {
	if size == 0 {
		return nil
	}
	return h.Write(addr, make([]byte, size))
}

func copyRaw(h rtti.Heap, dst, src, size uint32) error {
	if dst == src || size == 0 {
		return nil
	}
	data, err := h.Read(src, size)
	if err != nil {
		return err
	}
	return h.Write(dst, append([]byte(nil), data...))
}

func equalRaw(h rtti.Heap, a, b, size uint32) (bool, error) {
	if a == b {
		return true, nil
	}
	da, err := h.Read(a, size)
	if err != nil {
		return false, err
	}
	da = append([]byte(nil), da...)
	db, err := h.Read(b, size)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

// enumValue reads a discrete or flag enum. Discrete enums declaring a
// negative value are sign-extended; all others read unsigned.
func enumValue(t *types.Type, h rtti.Heap, addr uint32) (uint64, error) {
	size := t.Layout().Size
	v, err := scalar.Load(h, addr, size)
	if err != nil {
		return 0, err
	}
	if t.Kind() == types.KindEnum && signedEnum(t) {
		v = uint64(scalar.SignExtend(v, size))
	}
	return v, nil
}

func signedEnum(t *types.Type) bool {
	en, _ := t.Enum()
	return lo.SomeBy(en.Values, func(v types.EnumValue) bool { return v.Value < 0 })
}
