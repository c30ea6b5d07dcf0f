package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDB = `
version: 1.0.0
types:
  - name: Point
    kind: compound
    attributes:
      - {name: x, type: int32, group: Position}
      - {name: y, type: int32, group: Position}
  - name: Path
    kind: compound
    attributes:
      - {name: points, type: "Array<Point>"}
`

func newTestApp(t *testing.T, heap string, swap bool) *app {
	t.Helper()
	path := filepath.Join(t.TempDir(), "types.yaml")
	if err := os.WriteFile(path, []byte(testDB), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := defaultConfig()
	cfg.DB = []string{path}
	cfg.Heap = heap
	cfg.Swap = swap
	a, closeHeap, err := setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(closeHeap)
	return a
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		heap string
		swap bool
		want string
	}{
		{"linear", false, "0100000002000000"},
		{"linear", true, "0000000100000002"},
		{"guest", false, "0100000002000000"},
	}
	for _, tt := range tests {
		t.Run(tt.heap, func(t *testing.T) {
			a := newTestApp(t, tt.heap, tt.swap)
			point, err := a.reg.GetByName("Point")
			if err != nil {
				t.Fatal(err)
			}

			encoded, decoded, err := a.roundTrip(point, `{"x":"1","y":"2"}`)
			if err != nil {
				t.Fatalf("roundTrip: %v", err)
			}
			if encoded != tt.want {
				t.Errorf("encoded = %s, want %s", encoded, tt.want)
			}
			if want := `{"@type":"Point","x":"1","y":"2"}`; decoded != want {
				t.Errorf("decoded = %s, want %s", decoded, want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	a := newTestApp(t, "linear", false)
	path, err := a.reg.GetByName("Path")
	if err != nil {
		t.Fatal(err)
	}
	point, _ := a.reg.GetByName("Point")

	var b strings.Builder
	if err := a.describe(&b, point); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Point", "[Position]", "x", "@4"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("describe output missing %q:\n%s", want, b.String())
		}
	}

	b.Reset()
	if err := a.describe(&b, path); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "Array<Point>") {
		t.Errorf("describe output missing item type:\n%s", b.String())
	}

	b.Reset()
	a.list(&b)
	if got := strings.Count(b.String(), "\n"); got != len(a.reg.Types()) {
		t.Errorf("list printed %d lines, want %d", got, len(a.reg.Types()))
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtti.yaml")
	src := "log:\n  level: debug\n  format: json\nswap: true\ncolor: false\ndb: [a.yaml, b.json]\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || !cfg.Swap {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Color == nil || *cfg.Color {
		t.Errorf("color = %v, want false", cfg.Color)
	}
	if cfg.Heap != "linear" {
		t.Errorf("heap default lost: %q", cfg.Heap)
	}
	if len(cfg.DB) != 2 {
		t.Errorf("db = %v", cfg.DB)
	}

	if _, err := newLogger(&cfg.Log); err != nil {
		t.Errorf("newLogger: %v", err)
	}
	if _, err := newLogger(&LogConfig{Level: "loud"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a.yaml, ,b.json ")
	if len(got) != 2 || got[0] != "a.yaml" || got[1] != "b.json" {
		t.Errorf("splitList = %v", got)
	}
}
