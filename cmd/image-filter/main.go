// Command image-filter applies a filter plugin to an image file.
//
// Usage:
//
//	image-filter [flags] <input> <output> <plugin> <params-file>
//	image-filter serve [flags]
//
// The first form decodes input, runs the process_image entry point of the
// named plugin over its RGBA8 pixels with the text of params-file, and writes
// output. The plugin is loaded from <plugin-path>/lib<plugin>.so (.dylib on
// macOS, <plugin>.dll on Windows).
//
// serve runs an MCP server on stdin/stdout that exposes the same pipeline as
// tools.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ironsheep/image-filter-host/internal/host"
	"github.com/ironsheep/image-filter-host/internal/logging"
	"github.com/ironsheep/image-filter-host/internal/server"
	"github.com/ironsheep/image-filter-host/internal/telemetry"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "image-filter %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return exitOK
		case "serve":
			return serve(ctx, args[1:], stderr)
		}
	}
	return apply(ctx, args, stdout, stderr)
}

func apply(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("image-filter", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	o.register(fs)
	fs.StringVar(&o.textfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
	list := fs.Bool("list", false, "list the filters that can be resolved and exit")
	printConfig := fs.Bool("print-config", false, "print the effective configuration as YAML and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: image-filter [flags] <input> <output> <plugin> <params-file>\n")
		fmt.Fprintf(stderr, "       image-filter serve [flags]\n\n")
		fmt.Fprintf(stderr, "Applies a filter plugin to an image file.\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment variables override the config file, e.g. IMAGE_FILTER__PLUGIN_DIR, IMAGE_FILTER__LOG__LEVEL.\n")
	}

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := o.load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		stdout.Write(out)
		return exitOK
	}

	metrics := telemetry.New()
	h, err := host.New(cfg, host.WithLogger(logging.L()), host.WithMetrics(metrics))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() {
		if err := h.Close(); err != nil {
			logging.L().Warn("failed to unload plugins", "err", err)
		}
	}()

	if *list {
		return listFilters(h, stdout, stderr)
	}

	if len(positional) != 4 {
		fs.Usage()
		return exitUsage
	}

	_, runErr := h.Run(ctx, host.Request{
		Input:      positional[0],
		Output:     positional[1],
		Filter:     positional[2],
		ParamsFile: positional[3],
	})

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logging.L().Warn("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "err", err)
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return exitError
	}
	return exitOK
}

func listFilters(h *host.Host, stdout, stderr io.Writer) int {
	entries, err := h.Filters()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Source)
	}
	tw.Flush()
	return exitOK
}

func serve(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("image-filter serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	o.register(fs)
	fs.StringVar(&o.addr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: image-filter serve [flags]\n\n")
		fmt.Fprintf(stderr, "Runs an MCP server over stdin/stdout exposing image_load, filter_list and filter_apply.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := o.load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	log := logging.L()

	metrics := telemetry.New()
	h, err := host.New(cfg, host.WithLogger(log), host.WithMetrics(metrics))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer h.Close()

	if cfg.Metrics.Addr != "" {
		metrics.RegisterRuntime()
		srv := metrics.Expose(cfg.Metrics.Addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Debug("image-filter MCP server starting",
		"version", Version,
		"build_time", BuildTime,
		"commit", GitCommit,
		"plugin_dir", cfg.PluginDir,
		"mode", cfg.Mode,
	)

	if err := server.New(h, log, Version).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "err", err)
		return exitError
	}
	return exitOK
}
