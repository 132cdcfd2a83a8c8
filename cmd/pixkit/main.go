// Command pixkit bakes sprite sheets into texture atlases and runs
// headless particle simulations.
//
// Usage:
//
//	pixkit [flags] bake [-out dir] sheet.png...
//	pixkit [flags] simulate [-steps n] [-out particles.csv]
//	pixkit [flags] config
//
// Global flags:
//
//	-config file   YAML configuration overlaid on the defaults
//	-backend name  device backend (software, wgpu, webgl); default picks the best
//	-v             debug logging
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/pixkit"
	"github.com/gogpu/pixkit/backend"
	"github.com/gogpu/pixkit/config"
	"github.com/gogpu/pixkit/gpucore"

	_ "github.com/gogpu/pixkit/backend/webgl"
	_ "github.com/gogpu/pixkit/backend/wgpu"
)

var errUsage = errors.New("usage: pixkit [-config file] [-backend name] [-v] bake|simulate|config [args]")

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

// env is what every subcommand receives.
type env struct {
	cfg     *config.Config
	backend string
	stdout  io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pixkit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath = fs.String("config", "", "YAML configuration file")
		name    = fs.String("backend", "", "device backend (default: best available)")
		verbose = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	if *verbose {
		level = slog.LevelDebug
	}
	pixkit.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	defer pixkit.SetLogger(nil)

	e := &env{cfg: cfg, backend: cfg.Backend, stdout: stdout}
	if *name != "" {
		e.backend = *name
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "bake":
		return bake(e, rest, stderr)
	case "simulate":
		return simulate(e, rest, stderr)
	case "config":
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

// openDevice opens the configured backend, or the default one.
func (e *env) openDevice() (gpucore.Device, error) {
	var (
		dev gpucore.Device
		err error
	)
	if e.backend != "" {
		dev, err = backend.Open(e.backend)
	} else {
		dev, err = backend.Default()
	}
	if err != nil {
		return nil, err
	}
	pixkit.Logger().Info("pixkit: using backend", "name", dev.Name())
	return dev, nil
}
