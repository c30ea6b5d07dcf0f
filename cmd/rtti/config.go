package main

import (
	"os"
	"strings"

	cerrors "github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

// Config holds defaults read from the -config file. Flags given on the
// command line win over file values.
type Config struct {
	Log   LogConfig `yaml:"log"`
	DB    []string  `yaml:"db"`
	Heap  string    `yaml:"heap"`
	Color *bool     `yaml:"color"`
	Swap  bool      `yaml:"swap"`
}

type LogConfig struct {
	Level  string  `yaml:"level"`
	Format string  `yaml:"format"`
	File   LogFile `yaml:"file"`
}

// LogFile enables rotated file logging when Filename is set.
type LogFile struct {
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max-size"`
	MaxDays    int    `yaml:"max-days"`
	MaxBackups int    `yaml:"max-backups"`
}

const defaultLogMaxSize = 64 // MB

func defaultConfig() *Config {
	return &Config{
		Log:  LogConfig{Level: "warn", Format: "console"},
		Heap: "linear",
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, cerrors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// newLogger writes to stderr, and to a rotated file when configured.
func newLogger(cfg *LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, cerrors.Wrapf(err, "log level %q", cfg.Level)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, cerrors.Newf("log format %q, want console or json", cfg.Format)
	}

	outputs := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if cfg.File.Filename != "" {
		if st, err := os.Stat(cfg.File.Filename); err == nil && st.IsDir() {
			return nil, cerrors.Newf("log file %s is a directory", cfg.File.Filename)
		}
		maxSize := cfg.File.MaxSize
		if maxSize == 0 {
			maxSize = defaultLogMaxSize
		}
		outputs = append(outputs, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Filename,
			MaxSize:    maxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxDays,
			LocalTime:  true,
		}))
	}

	core := zapcore.NewCore(enc, zap.CombineWriteSyncers(outputs...), level)
	return zap.New(core), nil
}
