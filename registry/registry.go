package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
)

// Registry owns a set of type descriptors. Types are registered, then
// Build validates the whole set and derives per-compound information.
// After a successful Build the registry is immutable and safe for
// concurrent reads. A failed Build leaves the registry unusable.
type Registry struct {
	byID      map[types.ID]*types.Type
	byName    map[string]*types.Type
	info      map[*types.Type]*CompoundInfo
	logger    *zap.Logger
	err       error
	order     []*types.Type
	compounds []*types.Type
	mu        sync.RWMutex
	sealed    atomic.Bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger overrides the package logger for one registry.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		byID:   make(map[types.ID]*types.Type),
		byName: make(map[string]*types.Type),
		info:   make(map[*types.Type]*CompoundInfo),
		logger: Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a descriptor. Ids must be unique.
func (r *Registry) Register(t *types.Type) error {
	if !t.Valid() {
		kind := "nil"
		if t != nil {
			kind = t.Kind().String()
		}
		return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			Detail("descriptor of kind %s has no variant", kind).
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() || r.err != nil {
		return errors.Sealed(fmt.Sprintf("cannot register %s after Build", t.Name()))
	}
	if existing, ok := r.byID[t.ID()]; ok {
		r.logger.Debug("duplicate type id",
			zap.Uint32("id", uint32(t.ID())),
			zap.String("existing", existing.Name()),
			zap.String("type", t.Name()))
		return errors.DuplicateID(uint32(t.ID()), t.Name())
	}

	r.byID[t.ID()] = t
	r.order = append(r.order, t)

	name := t.Name()
	if prev, ok := r.byName[name]; ok {
		r.logger.Warn("type name collision, keeping first registration",
			zap.String("name", name),
			zap.Uint32("kept", uint32(prev.ID())),
			zap.Uint32("ignored", uint32(t.ID())))
	} else {
		r.byName[name] = t
	}

	r.logger.Debug("registered type",
		zap.Uint32("id", uint32(t.ID())),
		zap.String("name", name),
		zap.Stringer("kind", t.Kind()))
	return nil
}

// RegisterAll registers each descriptor in order, stopping at the first error.
func (r *Registry) RegisterAll(ts ...*types.Type) error {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Build validates every descriptor and derives compound information.
// It runs once; later calls return the first result.
func (r *Registry) Build() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return nil
	}
	if r.err != nil {
		return r.err
	}

	b := newBuilder(r)
	if err := b.run(); err != nil {
		r.err = err
		r.byID = map[types.ID]*types.Type{}
		r.byName = map[string]*types.Type{}
		r.info = map[*types.Type]*CompoundInfo{}
		r.order = nil
		r.compounds = nil
		r.logger.Error("registry build failed", zap.Error(err))
		return err
	}

	r.info = b.info
	r.compounds = b.compounds
	r.sealed.Store(true)
	r.logger.Info("registry built",
		zap.Int("types", len(r.order)),
		zap.Int("compounds", len(r.compounds)))
	return nil
}

// Built reports whether Build succeeded.
func (r *Registry) Built() bool { return r.sealed.Load() }

// Err returns the Build error of a poisoned registry.
func (r *Registry) Err() error {
	r.rlock()
	defer r.runlock()
	return r.err
}

func (r *Registry) rlock() {
	if !r.sealed.Load() {
		r.mu.RLock()
	}
}

func (r *Registry) runlock() {
	if !r.sealed.Load() {
		r.mu.RUnlock()
	}
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id types.ID) (*types.Type, bool) {
	if r.sealed.Load() {
		t, ok := r.byID[id]
		return t, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// Get is Lookup returning an unknown_type error on a miss.
func (r *Registry) Get(id types.ID) (*types.Type, error) {
	if t, ok := r.Lookup(id); ok {
		return t, nil
	}
	return nil, errors.UnknownType(errors.PhaseLookup, fmt.Sprintf("#%d", id))
}

// LookupByName finds a descriptor by exact symbol name.
func (r *Registry) LookupByName(name string) (*types.Type, bool) {
	if r.sealed.Load() {
		t, ok := r.byName[name]
		return t, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// GetByName is LookupByName returning an unknown_type error on a miss.
func (r *Registry) GetByName(name string) (*types.Type, error) {
	if t, ok := r.LookupByName(name); ok {
		return t, nil
	}
	return nil, errors.UnknownType(errors.PhaseLookup, fmt.Sprintf("%q", name))
}

// Contains reports whether t itself is registered.
func (r *Registry) Contains(t *types.Type) bool {
	if t == nil {
		return false
	}
	got, ok := r.Lookup(t.ID())
	return ok && got == t
}

// Types returns every descriptor in registration order.
func (r *Registry) Types() []*types.Type {
	r.rlock()
	defer r.runlock()
	out := make([]*types.Type, len(r.order))
	copy(out, r.order)
	return out
}

// Compounds returns the compound descriptors in registration order.
// Each CompoundInfo links to its neighbours through Next and Prev.
func (r *Registry) Compounds() []*types.Type {
	r.rlock()
	defer r.runlock()
	out := make([]*types.Type, len(r.compounds))
	copy(out, r.compounds)
	return out
}

// Info returns the derived information of a compound, or nil before
// Build and for other kinds.
func (r *Registry) Info(t *types.Type) *CompoundInfo {
	if !r.sealed.Load() {
		return nil
	}
	return r.info[t]
}

// Bootstrap registers every descriptor in ascending id order and builds
// the registry.
func Bootstrap(set map[types.ID]*types.Type, opts ...Option) (*Registry, error) {
	ids := make([]types.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	r := New(opts...)
	for _, id := range ids {
		t := set[id]
		if t != nil && t.ID() != id {
			return nil, errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
				Type(t.Name()).
				Detail("keyed as #%d but carries id #%d", id, t.ID()).
				Build()
		}
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	if err := r.Build(); err != nil {
		return nil, err
	}
	return r, nil
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}
