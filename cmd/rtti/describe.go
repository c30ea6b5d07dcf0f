package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/rtti"
	"github.com/wippyai/rtti/engine"
	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/typedb"
	"github.com/wippyai/rtti/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// app is what every command works on.
type app struct {
	reg   *registry.Registry
	eng   *engine.Engine
	heap  rtti.Heap
	swap  bool
	color bool
}

func (a *app) style(s lipgloss.Style, text string) string {
	if !a.color {
		return text
	}
	return s.Render(text)
}

func (a *app) list(w io.Writer) {
	for _, t := range a.reg.Types() {
		fmt.Fprintf(w, "%6d  %-11s %s  %s\n",
			t.ID(), t.Kind(), a.style(nameStyle, t.Name()), a.style(helpStyle, fmt.Sprintf("(%d bytes)", t.Size())))
	}
}

func (a *app) describe(w io.Writer, t *types.Type) error {
	fmt.Fprintf(w, "%s #%d %s, %d bytes, align %d\n",
		a.style(titleStyle, t.Name()), t.ID(), t.Kind(), t.Size(), t.Layout().Align)

	switch t.Kind() {
	case types.KindAtom:
		at, _ := t.Atom()
		if at.Base != nil {
			fmt.Fprintf(w, "  alias of %s\n", a.style(typeStyle, at.Base.Name()))
		}
		fmt.Fprintf(w, "  impl %s, simple %v\n", at.Impl, at.Simple)

	case types.KindPointer, types.KindContainer:
		fmt.Fprintf(w, "  item %s\n", a.style(typeStyle, t.ContainedType().Name()))

	case types.KindEnum, types.KindEnumFlags:
		e, _ := t.Enum()
		for _, v := range e.Values {
			aliases := ""
			if len(v.Aliases) > 0 {
				aliases = " (" + strings.Join(v.Aliases, ", ") + ")"
			}
			fmt.Fprintf(w, "  %-24s %d%s\n", a.style(nameStyle, v.Name), v.Value, aliases)
		}

	case types.KindEnumBitSet:
		bs, _ := t.BitSet()
		fmt.Fprintf(w, "  positions of %s, %d bits\n", a.style(typeStyle, bs.Enum.Name()), bs.Bits())

	case types.KindCompound:
		return a.describeCompound(w, t)
	}
	return nil
}

func (a *app) describeCompound(w io.Writer, t *types.Type) error {
	ci := a.reg.Info(t)
	if ci == nil {
		return fmt.Errorf("no compound info for %s", t.Name())
	}
	c, _ := t.Compound()
	for _, b := range c.Bases {
		fmt.Fprintf(w, "  base %s @%d\n", a.style(typeStyle, b.Type.Name()), b.Offset)
	}
	if c.SerializeFlags&types.SerializeVersioned != 0 {
		fmt.Fprintf(w, "  version %d\n", c.Version)
	}

	group := ""
	for _, ra := range ci.Ordered {
		if ra.Group != group {
			group = ra.Group
			fmt.Fprintf(w, "  [%s]\n", group)
		}
		at := ra.Attribute
		var notes []string
		switch {
		case at.IsComputed():
			notes = append(notes, "computed")
		case at.IsProperty():
			notes = append(notes, "property")
		default:
			notes = append(notes, fmt.Sprintf("@%d", ra.Offset()))
		}
		if ra.Parent != t {
			notes = append(notes, "from "+ra.Parent.Name())
		}
		if at.HasRange() {
			notes = append(notes, fmt.Sprintf("range [%s, %s]", at.Min, at.Max))
		}
		notes = append(notes, typedb.FormatAttrFlags(at.Flags)...)
		fmt.Fprintf(w, "    %-20s %-24s %s\n",
			a.style(nameStyle, at.Name), a.style(typeStyle, at.Type.Name()), a.style(helpStyle, strings.Join(notes, " ")))
	}
	for _, msg := range ci.Messages() {
		owners := make([]string, 0)
		for _, h := range ci.Handlers(msg) {
			owners = append(owners, h.Owner.Name())
		}
		fmt.Fprintf(w, "  on %s: %s\n", a.style(typeStyle, msg.Name()), strings.Join(owners, " -> "))
	}
	return nil
}

// encode parses text into a scratch instance and returns its binary form.
func (a *app) encode(t *types.Type, text string) ([]byte, error) {
	addr, err := a.eng.New(t, a.heap)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.eng.Delete(t, a.heap, addr) }()

	if err := a.eng.FromString(t, a.heap, addr, text); err != nil {
		return nil, err
	}
	return a.eng.Marshal(t, a.heap, addr, a.swap)
}

// decode reads a binary form given in hex and returns its text.
func (a *app) decode(t *types.Type, hexText string) (string, error) {
	data, err := hex.DecodeString(strings.Join(strings.Fields(hexText), ""))
	if err != nil {
		return "", fmt.Errorf("decode hex: %w", err)
	}
	addr, err := a.eng.New(t, a.heap)
	if err != nil {
		return "", err
	}
	defer func() { _ = a.eng.Delete(t, a.heap, addr) }()

	if err := a.eng.Unmarshal(t, a.heap, addr, data, a.swap); err != nil {
		return "", err
	}
	return a.eng.ToString(t, a.heap, addr)
}

// roundTrip encodes text and decodes the result again.
func (a *app) roundTrip(t *types.Type, text string) (string, string, error) {
	data, err := a.encode(t, text)
	if err != nil {
		return "", "", err
	}
	back, err := a.decode(t, hex.EncodeToString(data))
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(data), back, nil
}
