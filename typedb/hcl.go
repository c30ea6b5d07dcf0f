package typedb

import (
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclDocument is the block form of a document:
//
//	version = "1.0.0"
//
//	type "Point" {
//	  kind = "compound"
//	  attribute "x" { type = "int32" }
//	  attribute "y" { type = "int32" }
//	}
type hclDocument struct {
	Version string    `hcl:"version"`
	Types   []hclType `hcl:"type,block"`
}

type hclType struct {
	Name       string         `hcl:"name,label"`
	Kind       string         `hcl:"kind"`
	Impl       string         `hcl:"impl,optional"`
	Item       string         `hcl:"item,optional"`
	Order      []string       `hcl:"order,optional"`
	ID         uint32         `hcl:"id,optional"`
	Size       uint32         `hcl:"size,optional"`
	Alignment  uint32         `hcl:"alignment,optional"`
	Version    uint16         `hcl:"version,optional"`
	Versioned  bool           `hcl:"versioned,optional"`
	Values     []hclValue     `hcl:"value,block"`
	Bases      []hclBase      `hcl:"base,block"`
	Attributes []hclAttribute `hcl:"attribute,block"`
}

type hclValue struct {
	Name    string   `hcl:"name,label"`
	Value   int32    `hcl:"value"`
	Aliases []string `hcl:"aliases,optional"`
}

type hclBase struct {
	Type   string  `hcl:"type,label"`
	Offset *uint32 `hcl:"offset,optional"`
}

type hclAttribute struct {
	Name   string   `hcl:"name,label"`
	Type   string   `hcl:"type"`
	Offset *uint32  `hcl:"offset,optional"`
	Group  string   `hcl:"group,optional"`
	Min    string   `hcl:"min,optional"`
	Max    string   `hcl:"max,optional"`
	Flags  []string `hcl:"flags,optional"`
}

func parseHCL(data []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	var parsed hclDocument
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, diags
	}

	doc := &Document{Version: parsed.Version, Types: make([]Definition, 0, len(parsed.Types))}
	for _, ht := range parsed.Types {
		def := Definition{
			Name:      ht.Name,
			Kind:      ht.Kind,
			Impl:      ht.Impl,
			Item:      ht.Item,
			Order:     ht.Order,
			ID:        ht.ID,
			Size:      ht.Size,
			Alignment: ht.Alignment,
			Version:   ht.Version,
			Versioned: ht.Versioned,
		}
		for _, v := range ht.Values {
			def.Values = append(def.Values, Value{Name: v.Name, Aliases: v.Aliases, Value: v.Value})
		}
		for _, b := range ht.Bases {
			def.Bases = append(def.Bases, BaseDef{Type: b.Type, Offset: b.Offset})
		}
		for _, a := range ht.Attributes {
			def.Attributes = append(def.Attributes, AttributeDef{
				Name:   a.Name,
				Type:   a.Type,
				Offset: a.Offset,
				Group:  a.Group,
				Min:    a.Min,
				Max:    a.Max,
				Flags:  a.Flags,
			})
		}
		doc.Types = append(doc.Types, def)
	}
	return doc, nil
}
