// beetle runs a turtle-extrusion script and writes the trails it leaves
// as an STL file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chazu/beetle/pkg/config"
	"github.com/chazu/beetle/pkg/export"
	"github.com/chazu/beetle/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, `beetle - 3D turtle extrusion

Usage:
  beetle -script <file.beetle> [-out trail.stl] [options]

Examples:
  beetle -script examples/tube.beetle -out tube.stl
  beetle -script - -format ascii < examples/spiral.beetle
  beetle -script examples/frame.beetle -outline profile.dxf

Options:`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// run is main without the process exit, so it can be tested.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("beetle", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "Path to a YAML config file")
	scriptPath := fs.String("script", "", "Script to run (- for stdin)")
	outPath := fs.String("out", "", "Write the trails to this STL file (- for stdout)")
	outlinePath := fs.String("outline", "", "Write the final cross-section outline to this DXF file")
	format := fs.String("format", "", "STL format: binary or ascii (default from config)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		printUsage(stderr, fs)
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *scriptPath == "" {
		printUsage(stderr, fs)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 1
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if *format != "" {
		cfg.Export.Format = *format
	}
	stlFormat, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	log := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		File:    logger.DefaultFileConfig(cfg.Logging.LogFile),
		Console: stderr,
	})
	defer log.Sync()

	source, err := readScript(*scriptPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	app, err := NewApp(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result := app.Evaluate(ctx, string(source))
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(stderr, "%s:%d: %s\n", *scriptPath, e.Line, e.Message)
		} else {
			fmt.Fprintf(stderr, "%s: %s\n", *scriptPath, e.Message)
		}
	}
	log.Info("script finished",
		zap.Int("segments", result.Stats.Segments),
		zap.Int("triangles", result.Stats.Triangles),
		zap.Float64("volume", result.Stats.Volume))
	if len(result.Errors) > 0 {
		return 1
	}

	if *outPath != "" {
		if err := writeSTL(app, *outPath, stlFormat, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	if *outlinePath != "" {
		if err := app.SaveOutline(*outlinePath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

func readScript(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeSTL(app *App, path string, format export.Format, stdout io.Writer) error {
	if path == "-" {
		_, err := app.ExportSTL(stdout, format)
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := app.ExportSTL(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
