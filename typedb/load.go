package typedb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	cerrors "github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/rtti/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".hcl":
		return FormatHCL, true
	}
	return "", false
}

// Parse decodes a document. name labels diagnostics.
func Parse(data []byte, format Format, name string) (*Document, error) {
	doc := &Document{}
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(doc)
	case FormatHCL:
		doc, err = parseHCL(data, name)
	default:
		return nil, errors.New(errors.PhaseParse, errors.KindUnsupported).
			Detail("format %q", format).
			Build()
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindMalformedInput, err, name)
	}
	if _, err := doc.CheckVersion(); err != nil {
		return nil, errors.At(err, name)
	}
	Logger().Debug("parsed type database",
		zap.String("source", name),
		zap.String("format", string(format)),
		zap.String("version", doc.Version),
		zap.Int("types", len(doc.Types)))
	return doc, nil
}

// Load reads and decodes the document at path.
func Load(path string) (*Document, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Detail("no format for %s", filepath.Base(path)).
			Build()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Wrapf(err, "read type database %s", path)
	}
	return Parse(data, format, path)
}

// LoadFiles loads every path concurrently and merges the documents in
// the order given.
func LoadFiles(ctx context.Context, paths ...string) (*Document, error) {
	docs := make([]*Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := Load(p)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Merge(docs...)
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return cerrors.Wrap(err, "encode type database")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return cerrors.WithDetail(cerrors.Wrapf(err, "write type database %s", path), "check the directory exists and is writable")
	}
	return nil
}

// WriteYAML writes doc as YAML.
func WriteYAML(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cerrors.Wrap(err, "encode type database")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cerrors.Wrapf(err, "write type database %s", path)
	}
	return nil
}
