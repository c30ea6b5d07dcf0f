package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cerrors "github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/rtti/engine"
	"github.com/wippyai/rtti/registry"
	"github.com/wippyai/rtti/stdtypes"
	"github.com/wippyai/rtti/typedb"
)

func main() {
	var (
		dbFiles     = flag.String("db", "", "Type database files (comma-separated .json/.yaml/.hcl)")
		list        = flag.Bool("list", false, "List registered types and exit")
		typeName    = flag.String("type", "", "Type to describe, encode or decode")
		value       = flag.String("value", "", "Text value to encode (requires -type)")
		decode      = flag.String("decode", "", "Hex bytes to decode (requires -type)")
		swap        = flag.Bool("swap", false, "Byte-swap multi-byte values in the binary form")
		export      = flag.String("export", "", "Write the loaded types to a .json or .yaml file")
		heapKind    = flag.String("heap", "", "Instance heap: linear or guest (wazero memory)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		configFile  = flag.String("config", "", "YAML config file with defaults")
		logFile     = flag.String("log-file", "", "Also log to a rotated file")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = splitList(*dbFiles)
		case "swap":
			cfg.Swap = *swap
		case "heap":
			cfg.Heap = *heapKind
		case "log-file":
			cfg.Log.File.Filename = *logFile
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	if len(cfg.DB) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: rtti -db <types.yaml>[,more] -list")
		fmt.Fprintln(os.Stderr, "       rtti -db <types.yaml> -type Name [-value text | -decode hex] [-swap]")
		fmt.Fprintln(os.Stderr, "       rtti -db <types.yaml> -export out.json")
		fmt.Fprintln(os.Stderr, "       rtti -db <types.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	logger, err := newLogger(&cfg.Log)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	registry.SetLogger(logger.Named("registry"))
	engine.SetLogger(logger.Named("engine"))
	typedb.SetLogger(logger.Named("typedb"))

	ctx := context.Background()
	a, closeHeap, err := setup(ctx, cfg)
	if err != nil {
		fatal(err)
	}
	defer closeHeap()

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			fatal(cerrors.New("interactive mode needs a terminal"))
		}
		if err := runInteractive(a, cfg.DB); err != nil {
			fatal(err)
		}
		return
	}

	if err := run(a, *list, *typeName, *value, *decode, *export); err != nil {
		logger.Debug("command failed", zap.Error(err))
		fatal(err)
	}
}

func setup(ctx context.Context, cfg *Config) (*app, func(), error) {
	doc, err := typedb.LoadFiles(ctx, cfg.DB...)
	if err != nil {
		return nil, nil, err
	}
	reg, err := typedb.Build(doc, stdtypes.NewCatalog(1))
	if err != nil {
		return nil, nil, err
	}
	heap, closeHeap, err := openHeap(ctx, cfg.Heap)
	if err != nil {
		return nil, nil, err
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))
	if cfg.Color != nil {
		color = *cfg.Color
	}
	return &app{
		reg:   reg,
		eng:   engine.New(reg),
		heap:  heap,
		swap:  cfg.Swap,
		color: color,
	}, closeHeap, nil
}

func run(a *app, listOnly bool, typeName, value, decode, export string) error {
	if export != "" {
		doc := typedb.Export(a.reg)
		var err error
		switch strings.ToLower(filepath.Ext(export)) {
		case ".yaml", ".yml":
			err = typedb.WriteYAML(export, doc)
		default:
			err = typedb.WriteJSON(export, doc)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d types to %s\n", len(doc.Types), export)
	}

	if listOnly {
		a.list(os.Stdout)
		return nil
	}
	if typeName == "" {
		if export == "" {
			a.list(os.Stdout)
		}
		return nil
	}

	t, err := a.reg.GetByName(typeName)
	if err != nil {
		return err
	}

	switch {
	case value != "":
		data, err := a.encode(t, value)
		if err != nil {
			return cerrors.Wrapf(err, "encode %s", typeName)
		}
		fmt.Println(a.style(resultStyle, hex.EncodeToString(data)))
	case decode != "":
		text, err := a.decode(t, decode)
		if err != nil {
			return cerrors.Wrapf(err, "decode %s", typeName)
		}
		fmt.Println(a.style(resultStyle, text))
	default:
		return a.describe(os.Stdout, t)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
