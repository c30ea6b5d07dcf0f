package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/wippyai/rtti/errors"
	"github.com/wippyai/rtti/types"
)

// resolve derives the attribute views of t, resolving its bases first.
func (b *builder) resolve(t *types.Type) (*CompoundInfo, error) {
	if ci, ok := b.info[t]; ok {
		return ci, nil
	}
	c, _ := t.Compound()
	ci := &CompoundInfo{
		Type:     t,
		byName:   make(map[string]int),
		handlers: make(map[*types.Type][]Handler),
	}

	seen := make(map[attrKey]bool)
	add := func(ra ResolvedAttribute) error {
		k := attrKey{ra.Parent, ra.Attribute.Name}
		if seen[k] {
			return nil
		}
		if i, ok := ci.byName[k.name]; ok {
			return errors.New(errors.PhaseBuild, errors.KindDuplicateName).
				Type(t.Name()).
				Detail("attribute %q declared by both %s and %s", k.name, ci.Attributes[i].Parent.Name(), ra.Parent.Name()).
				Value(k.name).
				Build()
		}
		seen[k] = true
		ci.byName[k.name] = len(ci.Attributes)
		ci.Attributes = append(ci.Attributes, ra)
		return nil
	}

	bases := make([]*CompoundInfo, len(c.Bases))
	for i, base := range c.Bases {
		bi, err := b.resolve(base.Type)
		if err != nil {
			return nil, err
		}
		bases[i] = bi
		for _, ra := range bi.Attributes {
			ra.Base += base.Offset
			if err := add(ra); err != nil {
				return nil, err
			}
		}
	}

	group := ""
	own := make([]ResolvedAttribute, 0, len(c.Attributes))
	for i := range c.Attributes {
		a := &c.Attributes[i]
		if a.IsGroup() {
			group = a.Name
			continue
		}
		ra := ResolvedAttribute{Attribute: a, Parent: t, Group: group}
		if err := add(ra); err != nil {
			return nil, err
		}
		own = append(own, ra)
	}

	inherited := b.inheritedOrder(ci, c, bases)
	if len(c.OrderedAttributes) == 0 {
		ci.Ordered = append(inherited, own...)
	} else {
		ordered, err := b.declaredOrder(t, ci, c, inherited)
		if err != nil {
			return nil, err
		}
		ci.Ordered = ordered
	}
	ci.Own = lo.Filter(ci.Ordered, func(ra ResolvedAttribute, _ int) bool {
		return ra.Parent == t
	})

	b.info[t] = ci
	return ci, nil
}

// inheritedOrder concatenates the presentation order of every base,
// keeping the first occurrence of attributes shared through diamonds.
func (b *builder) inheritedOrder(ci *CompoundInfo, c *types.Compound, bases []*CompoundInfo) []ResolvedAttribute {
	var out []ResolvedAttribute
	emitted := make(map[string]bool)
	for i := range c.Bases {
		for _, ra := range bases[i].Ordered {
			name := ra.Attribute.Name
			if emitted[name] {
				continue
			}
			emitted[name] = true
			out = append(out, ci.Attributes[ci.byName[name]])
		}
	}
	return out
}

// declaredOrder applies OrderedAttributes. The declaration may list the
// whole resolved set, or only the compound's own attributes, in which
// case inherited attributes keep their base order ahead of them.
func (b *builder) declaredOrder(t *types.Type, ci *CompoundInfo, c *types.Compound, inherited []ResolvedAttribute) ([]ResolvedAttribute, error) {
	var declared []ResolvedAttribute
	emitted := make(map[string]bool)
	onlyOwn := true

	for _, oa := range c.OrderedAttributes {
		if oa.Attribute.IsGroup() {
			continue
		}
		parent := oa.Parent
		if parent == nil {
			parent = t
		}
		name := oa.Attribute.Name
		i, ok := ci.byName[name]
		if !ok || ci.Attributes[i].Parent != parent {
			return nil, errors.InvalidLayout(t.Name(),
				fmt.Sprintf("ordered attribute %s.%s is not in the resolved set", parent.Name(), name))
		}
		if emitted[name] {
			return nil, errors.InvalidLayout(t.Name(), fmt.Sprintf("ordered attribute %q listed twice", name))
		}
		emitted[name] = true

		ra := ci.Attributes[i]
		if oa.Group != "" {
			ra.Group = oa.Group
		}
		if parent != t {
			onlyOwn = false
		}
		declared = append(declared, ra)
	}

	switch {
	case len(declared) == len(ci.Attributes):
		return declared, nil
	case onlyOwn && len(declared) == len(ci.Attributes)-len(inherited):
		return append(append([]ResolvedAttribute{}, inherited...), declared...), nil
	}

	missing := lo.FilterMap(ci.Attributes, func(ra ResolvedAttribute, _ int) (string, bool) {
		return ra.Attribute.Name, !emitted[ra.Attribute.Name]
	})
	return nil, errors.InvalidLayout(t.Name(),
		fmt.Sprintf("ordered attributes do not cover %s", strings.Join(missing, ", ")))
}

type chainNode struct {
	owner  *types.Type
	offset uint32
}

// bindHandlers orders the handlers of every message handled in the
// inheritance chain of t.
func (b *builder) bindHandlers(t *types.Type) error {
	var chain []chainNode
	seen := make(map[*types.Type]bool)

	var walk func(t *types.Type, offset uint32)
	walk = func(t *types.Type, offset uint32) {
		c, _ := t.Compound()
		for _, base := range c.Bases {
			walk(base.Type, offset+base.Offset)
		}
		if !seen[t] {
			seen[t] = true
			chain = append(chain, chainNode{t, offset})
		}
	}
	walk(t, 0)

	var messages []*types.Type
	for _, n := range chain {
		c, _ := n.owner.Compound()
		for _, h := range c.MessageHandlers {
			messages = append(messages, h.Message)
		}
	}

	ci := b.info[t]
	ci.messages = lo.Uniq(messages)
	for _, msg := range ci.messages {
		var nodes []chainNode
		for _, n := range chain {
			c, _ := n.owner.Compound()
			if _, ok := c.Handler(msg); ok {
				nodes = append(nodes, n)
			}
		}

		sorted, err := sortHandlers(t, msg, nodes)
		if err != nil {
			return err
		}
		bound := make([]Handler, len(sorted))
		for i, n := range sorted {
			c, _ := n.owner.Compound()
			h, _ := c.Handler(msg)
			bound[i] = Handler{Owner: n.owner, Offset: n.offset, Fn: h.Handler}
		}
		ci.handlers[msg] = bound
	}
	return nil
}

// sortHandlers is a stable topological sort: among handlers free to run,
// the one earliest in the default order goes first.
func sortHandlers(t, msg *types.Type, nodes []chainNode) ([]chainNode, error) {
	index := make(map[*types.Type]int, len(nodes))
	for i, n := range nodes {
		index[n.owner] = i
	}

	edges := make([][]int, len(nodes))
	indegree := make([]int, len(nodes))
	for i, n := range nodes {
		c, _ := n.owner.Compound()
		for _, o := range c.MessageOrder {
			if o.Message != msg {
				continue
			}
			j, ok := index[o.Compound]
			if !ok || j == i {
				continue
			}
			from, to := i, j
			if !o.Before {
				from, to = j, i
			}
			edges[from] = append(edges[from], to)
			indegree[to]++
		}
	}

	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]chainNode, 0, len(nodes))
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		out = append(out, nodes[i])
		for _, j := range edges[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}

	if len(out) < len(nodes) {
		stuck := lo.FilterMap(nodes, func(n chainNode, i int) (string, bool) {
			return n.owner.Name(), indegree[i] > 0
		})
		return nil, errors.CyclicOrdering(t.Name(),
			fmt.Sprintf("handlers of %s cannot be ordered: %s", msg.Name(), strings.Join(stuck, ", ")))
	}
	return out, nil
}
