package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"packed-flame/internal/config"
	"packed-flame/internal/game"
	"packed-flame/internal/graphics/gpu"
	"packed-flame/internal/logging"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"
)

func init() {
	// GLFW and GL calls must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Apply()

	log, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	var cleanup []func()
	closer.Bind(func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
		if err := closeLog(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	})

	if err := glfw.Init(); err != nil {
		fatal(log, "could not initialize glfw", err)
	}
	cleanup = append(cleanup, glfw.Terminate)

	app, window, err := setup(cfg, log)
	if err != nil {
		fatal(log, "startup failed", err)
	}
	cleanup = append(cleanup, window.Destroy)

	app.Run()
	log.Info("window closed, shutting down")
	closer.Close()
}

// fatal logs to every sink, runs the bound cleanup and exits non-zero.
func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	closer.Fatalln(msg+":", err)
}

// setup opens the window and builds the scene on the current thread.
func setup(cfg *config.Config, log *slog.Logger) (*game.App, *glfw.Window, error) {
	window, err := game.SetupWindow(cfg.Window)
	if err != nil {
		return nil, nil, err
	}
	scene, state, err := game.NewScene(cfg, gpu.NewGL(), log)
	if err != nil {
		window.Destroy()
		return nil, nil, err
	}
	return game.NewApp(window, scene, state, log), window, nil
}
