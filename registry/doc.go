// Package registry owns type descriptors and validates them as a set.
//
// Descriptors are registered by id, then Build checks every cross
// reference, layout and flag mask, detects inheritance and message
// ordering cycles, and derives per-compound information: the resolved
// attribute set, the presentation order and the ordered message handlers.
//
//	reg := registry.New()
//	_ = reg.RegisterAll(i32, point)
//	if err := reg.Build(); err != nil {
//	    // the registry is unusable
//	}
//	info := reg.Info(point)
//
// Build errors are fatal: a registry whose Build failed answers every
// lookup with a miss and reports the failure through Err.
package registry
