package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Physics PhysicsConfig `toml:"physics"`
	Scripts ScriptsConfig `toml:"scripts"`
	Scene   SceneConfig   `toml:"scene"`
	Debug   DebugConfig   `toml:"debug"`
	Logging LoggingConfig `toml:"logging"`
}

type EngineConfig struct {
	Name          string `toml:"name"`
	MaxEntities   int    `toml:"max_entities"`
	FixedStepRate int    `toml:"fixed_step_rate"` // fixed updates per second
	MaxFixedSteps int    `toml:"max_fixed_steps"` // accumulator clamp, in steps
	FPSLimit      int    `toml:"fps_limit"`       // 0 = unpaced
	StartTime     int64  // set at boot, not from config
}

// FixedStep returns the fixed timestep in seconds.
func (e EngineConfig) FixedStep() float32 { return 1 / float32(e.FixedStepRate) }

// FrameInterval returns the pacing interval for Run, zero when unpaced.
func (e EngineConfig) FrameInterval() time.Duration {
	if e.FPSLimit <= 0 {
		return 0
	}
	return time.Second / time.Duration(e.FPSLimit)
}

type PhysicsConfig struct {
	Gravity          [2]float32 `toml:"gravity"`         // m/s²
	UnitsPerMeter    float32    `toml:"units_per_meter"` // world units per meter
	Damping          float32    `toml:"damping"`         // velocity multiplier per tick
	MaxIterations    int        `toml:"max_iterations"`
	CollisionExpire  float32    `toml:"collision_expire"` // seconds untouched before exit
	SleepSpeed       float32    `toml:"sleep_speed"`
	SleepTime        float32    `toml:"sleep_time"`
	CellSize         float32    `toml:"cell_size"`
	CorrectionFactor float32    `toml:"correction_factor"` // share of penetration fixed per iteration (0-1)
	Slop             float32    `toml:"slop"`              // penetration allowed without correction
	Seed             int64      `toml:"seed"`              // pair shuffle seed, 0 = time based
}

type ScriptsConfig struct {
	Dir string `toml:"dir"`
}

type SceneConfig struct {
	Dir   string `toml:"dir"`
	Start string `toml:"start"` // file name under Dir
}

type DebugConfig struct {
	View      bool    `toml:"view"`
	CellUnits float32 `toml:"cell_units"` // world units per terminal cell
	Profile   bool    `toml:"profile"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Engine.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := defaults()
	cfg.Engine.StartTime = time.Now().Unix()
	return cfg
}

// Validate rejects values the frame loop or the resolver cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.MaxEntities <= 0 {
		errs = append(errs, errors.New("engine.max_entities must be positive"))
	}
	if c.Engine.FixedStepRate <= 0 {
		errs = append(errs, errors.New("engine.fixed_step_rate must be positive"))
	}
	if c.Engine.MaxFixedSteps <= 0 {
		errs = append(errs, errors.New("engine.max_fixed_steps must be positive"))
	}
	if c.Physics.MaxIterations < 1 {
		errs = append(errs, errors.New("physics.max_iterations must be at least 1"))
	}
	if c.Physics.UnitsPerMeter <= 0 {
		errs = append(errs, errors.New("physics.units_per_meter must be positive"))
	}
	if c.Physics.CellSize <= 0 {
		errs = append(errs, errors.New("physics.cell_size must be positive"))
	}
	if c.Physics.CorrectionFactor <= 0 || c.Physics.CorrectionFactor > 1 {
		errs = append(errs, errors.New("physics.correction_factor must be in (0,1]"))
	}
	if c.Physics.Slop < 0 {
		errs = append(errs, errors.New("physics.slop must not be negative"))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:          "quadforge",
			MaxEntities:   5000,
			FixedStepRate: 60,
			MaxFixedSteps: 5,
			FPSLimit:      60,
		},
		Physics: DefaultPhysics(),
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Scene: SceneConfig{
			Dir:   "data/scenes",
			Start: "sandbox.yaml",
		},
		Debug: DebugConfig{
			CellUnits: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPhysics returns the resolver tuning the engine ships with.
func DefaultPhysics() PhysicsConfig {
	return PhysicsConfig{
		Gravity:          [2]float32{0, -9.81},
		UnitsPerMeter:    100,
		Damping:          0.99,
		MaxIterations:    10,
		CollisionExpire:  0.1,
		SleepSpeed:       0.05,
		SleepTime:        0.5,
		CellSize:         250,
		CorrectionFactor: 0.8,
		Slop:             0.5,
	}
}
