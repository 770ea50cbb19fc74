package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[engine]
max_entities = 128

[physics]
gravity = [0.0, -20.0]
max_iterations = 4
slop = 0.25
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.MaxEntities != 128 {
		t.Errorf("max_entities = %d", cfg.Engine.MaxEntities)
	}
	if cfg.Physics.Gravity != [2]float32{0, -20} {
		t.Errorf("gravity = %v", cfg.Physics.Gravity)
	}
	if cfg.Physics.MaxIterations != 4 || cfg.Physics.Slop != 0.25 {
		t.Errorf("physics = %+v", cfg.Physics)
	}
	// untouched keys keep their defaults
	if cfg.Engine.FixedStepRate != 60 || cfg.Physics.CellSize != 250 {
		t.Errorf("defaults lost: %+v %+v", cfg.Engine, cfg.Physics)
	}
	if cfg.Engine.StartTime == 0 {
		t.Error("start time not stamped")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"iterations", "[physics]\nmax_iterations = 0\n", "max_iterations"},
		{"correction", "[physics]\ncorrection_factor = 1.5\n", "correction_factor"},
		{"step rate", "[engine]\nfixed_step_rate = 0\n", "fixed_step_rate"},
		{"syntax", "[engine\n", "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestShippedConfigIsValid(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "engine.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Physics != DefaultPhysics() {
		t.Errorf("shipped physics differs from defaults: %+v", cfg.Physics)
	}
}

func TestEngineTiming(t *testing.T) {
	e := Default().Engine
	if got := e.FixedStep(); got != float32(1)/60 {
		t.Errorf("fixed step = %v", got)
	}
	e.FPSLimit = 0
	if e.FrameInterval() != 0 {
		t.Error("unpaced engine has a frame interval")
	}
}
