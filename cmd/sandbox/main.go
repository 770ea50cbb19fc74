package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quadforge/engine/internal/app"
	"github.com/quadforge/engine/internal/config"
	coresys "github.com/quadforge/engine/internal/core/system"
	"github.com/quadforge/engine/internal/data"
	"github.com/quadforge/engine/internal/scene"
	"github.com/quadforge/engine/internal/scripting"
	"github.com/quadforge/engine/internal/system"
)

var (
	configFlag  = flag.String("config", "", "config file (default $ENGINE_CONFIG or config/engine.toml)")
	sceneFlag   = flag.String("scene", "", "scene file under scene.dir, overrides scene.start")
	secondsFlag = flag.Float64("seconds", 5, "simulated seconds to run headless")
	viewFlag    = flag.Bool("view", false, "run in the terminal debug view")
	profileFlag = flag.String("profile", "", "write a cpu or mem profile to the working directory")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            quadforge sandbox              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       2D ECS · AABB physics · Lua         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mengine:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33;1m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	v := fmt.Sprint(value)
	dots := max(42-len(label)-len(v), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[1m%s\033[0m\n", label, strings.Repeat(".", dots), v)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

func run() (err error) {
	cfgPath := "config/engine.toml"
	if p := os.Getenv("ENGINE_CONFIG"); p != "" {
		cfgPath = p
	}
	if *configFlag != "" {
		cfgPath = *configFlag
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *viewFlag {
		cfg.Debug.View = true
	}
	if *sceneFlag != "" {
		cfg.Scene.Start = *sceneFlag
	}

	switch *profileFlag {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profileFlag)
	}

	// The view owns the terminal, so logs go to a file there.
	if cfg.Debug.View {
		cfg.Logging.Format = "json"
	}
	log, err := newLogger(cfg.Logging, cfg.Debug.View)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if !cfg.Debug.View {
		printBanner(cfg.Engine.Name)
		printSection("content")
	}

	scripts, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	defer scripts.Close()

	scenePath := filepath.Join(cfg.Scene.Dir, cfg.Scene.Start)
	file, err := data.LoadScene(scenePath)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if file.Name == "" {
		file.Name = strings.TrimSuffix(cfg.Scene.Start, filepath.Ext(cfg.Scene.Start))
	}

	if !cfg.Debug.View {
		printStat("lua behaviours", len(scripts.Behaviours()))
		printStat("scene entities", len(file.Entities))
		printOK("loaded " + scenePath)
		fmt.Println()
	}

	a := app.New(cfg.Engine, log)
	behaviours := system.NewBehaviourSystem()
	phys := system.NewPhysicsSystem(cfg.Physics, log)

	var screen tcell.Screen
	if cfg.Debug.View {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Fini()
		screen.EnableMouse(tcell.MouseMotionEvents)
	}

	// Lua errors and resolver panics unwind the frame; restore the terminal
	// before reporting them.
	defer func() {
		if r := recover(); r != nil {
			if screen != nil {
				screen.Fini()
			}
			log.Error("engine crashed", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("engine crashed: %v", r)
		}
	}()

	var view *system.DebugView
	var input *system.InputSystem
	if screen != nil {
		view = system.NewDebugView(screen, cfg.Debug.CellUnits, phys)
		events := make(chan tcell.Event, 100)
		go func() {
			for {
				ev := screen.PollEvent()
				if ev == nil {
					return
				}
				events <- ev
			}
		}()
		input = system.NewInputSystem(events, 0, view, behaviours, a.Quit, log)
	}

	systems := []coresys.System{behaviours, phys, system.NewCleanupSystem(log)}
	if view != nil {
		systems = append([]coresys.System{input}, append(systems, view)...)
	}
	for _, s := range systems {
		if err := a.RegisterSystem(s); err != nil {
			return err
		}
	}

	a.AddScene(file.Name, func(s *scene.Scene) error {
		_, err := data.Spawn(s, file, scripts)
		return err
	})
	if err := a.LoadScene(file.Name); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)
	go func() {
		select {
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Debug.View {
		return a.Run(ctx)
	}

	printSection("simulation")
	printReady(fmt.Sprintf("headless, %.1fs at %d Hz", *secondsFlag, cfg.Engine.FixedStepRate))
	start := time.Now()
	if err := runHeadless(ctx, a, cfg.Engine, *secondsFlag); err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := phys.Stats()
	a.Shutdown()
	fmt.Println()
	printSection("results")
	printStat("frames", a.Frames())
	printStat("bodies", st.Bodies)
	printStat("contacts", st.Contacts)
	printStat("iteration cap", st.Cap)
	printStat("wall time", elapsed.Round(time.Millisecond))
	if cfg.Debug.Profile {
		for _, sec := range a.Profiler().Sections() {
			printStat(sec.Name+" avg", sec.Avg())
		}
	}
	fmt.Println()
	return nil
}

// runHeadless steps whole fixed steps as fast as possible until seconds of
// simulated time have passed, the app quits or ctx is cancelled.
func runHeadless(ctx context.Context, a *app.App, cfg config.EngineConfig, seconds float64) error {
	step := cfg.FixedStep()
	frames := int(seconds*float64(cfg.FixedStepRate)) + 1 // first frame loads the scene
	for i := 0; i < frames && a.Running(); i++ {
		if ctx.Err() != nil {
			return nil
		}
		if err := a.Frame(step); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cfg config.LoggingConfig, toFile bool) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	if toFile {
		zapCfg.OutputPaths = []string{"sandbox.log"}
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
