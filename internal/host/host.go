// Package host runs one filter over one image file.
//
// A run checks its inputs, decodes the source into an RGBA8 buffer, resolves
// the filter through a plugin.Registry, hands the buffer to process_image and
// encodes the result. The output file is written only when the filter
// reports success.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ironsheep/image-filter-host/internal/abi"
	"github.com/ironsheep/image-filter-host/internal/config"
	"github.com/ironsheep/image-filter-host/internal/filter"
	"github.com/ironsheep/image-filter-host/internal/imaging"
	"github.com/ironsheep/image-filter-host/internal/logging"
	"github.com/ironsheep/image-filter-host/internal/plugin"
	"github.com/ironsheep/image-filter-host/internal/telemetry"
)

var (
	// ErrInputImageNotFound is returned when the input path does not exist.
	ErrInputImageNotFound = errors.New("input image not found")

	// ErrParamsFileNotFound is returned when the params path does not exist.
	ErrParamsFileNotFound = errors.New("params file not found")

	// ErrInvalidParams is returned when params text is not UTF-8 or contains
	// a NUL byte.
	ErrInvalidParams = errors.New("invalid params text")

	// ErrProcessFailed is returned when the filter returns a failure status.
	ErrProcessFailed = errors.New("filter reported failure")

	// ErrImageTooLarge is returned when a dimension does not fit in uint32.
	ErrImageTooLarge = errors.New("image dimensions exceed uint32")
)

// Request names the files and filter of one run.
type Request struct {
	Input  string
	Output string
	Filter string

	// ParamsFile is read as the params text when set. Params is used
	// otherwise; empty text makes the filter use its defaults.
	ParamsFile string
	Params     string
}

// Result describes a completed or failed run.
type Result struct {
	Input    string          `json:"input"`
	Output   string          `json:"output"`
	Filter   string          `json:"filter"`
	Source   plugin.Source   `json:"source"`
	Module   string          `json:"module,omitempty"` // file of a native plugin
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Status   abi.Status      `json:"status"`
	Duration time.Duration   `json:"duration_ns"`
	Before   imaging.Summary `json:"before"`
	After    imaging.Summary `json:"after"`
}

// Host runs filters against image files. It owns the plugin registry, so
// Close must be called to unload native modules.
type Host struct {
	cfg     config.Config
	reg     *plugin.Registry
	cache   *imaging.ImageCache
	metrics *telemetry.Metrics
	log     *slog.Logger
}

// Option configures a Host built by New.
type Option func(*Host)

// WithLogger sets the logger. The default is logging.L().
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.log = l }
}

// WithMetrics records runs into m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Host) { h.metrics = m }
}

// WithRegistry replaces the registry built from the config. The host takes
// ownership and closes it.
func WithRegistry(r *plugin.Registry) Option {
	return func(h *Host) { h.reg = r }
}

// New builds a host. Unless WithRegistry is given, the registry resolves
// names in cfg.PluginDir using cfg.Mode with the compiled-in filters
// registered as builtins.
func New(cfg config.Config, opts ...Option) (*Host, error) {
	h := &Host{
		cfg:   cfg,
		cache: imaging.NewImageCache(),
		log:   logging.L(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = telemetry.New()
	}
	if h.reg == nil {
		mode, err := plugin.ParseMode(cfg.Mode)
		if err != nil {
			return nil, err
		}
		h.reg = plugin.NewRegistry(cfg.PluginDir, mode)
		if err := h.reg.RegisterFilters(filter.Builtins()...); err != nil {
			return nil, err
		}
	}
	abi.SetLogger(h.log)
	return h, nil
}

// Cache returns the decoded-image cache shared by runs.
func (h *Host) Cache() *imaging.ImageCache { return h.cache }

// Metrics returns the metrics runs are recorded into.
func (h *Host) Metrics() *telemetry.Metrics { return h.metrics }

// Filters lists the filters the registry can resolve.
func (h *Host) Filters() ([]plugin.Entry, error) { return h.reg.Available() }

// Close unloads every plugin opened by the host.
func (h *Host) Close() error { return h.reg.Close() }

// Run applies req.Filter to req.Input and writes req.Output.
//
// Checks run in this order: input exists, params file exists, params text is
// valid, output format is supported, input decodes, filter resolves. Any
// failure returns before the filter is called. A failure status from the
// filter returns ErrProcessFailed together with the Result and leaves no
// output file behind.
func (h *Host) Run(ctx context.Context, req Request) (*Result, error) {
	if _, err := os.Stat(req.Input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputImageNotFound, req.Input)
	}

	params, err := h.readParams(req)
	if err != nil {
		return nil, err
	}

	if err := imaging.CheckFormat(req.Output); err != nil {
		return nil, err
	}

	img, err := imaging.LoadRGBA(h.cache, req.Input)
	if err != nil {
		return nil, err
	}
	width, height, err := dimensions(img.Rect.Dx(), img.Rect.Dy())
	if err != nil {
		return nil, err
	}

	proc, err := h.reg.Open(req.Filter)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Input:  req.Input,
		Output: req.Output,
		Filter: req.Filter,
		Source: proc.Source(),
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Before: imaging.Summarize(img),
	}
	if p, ok := proc.(*plugin.Plugin); ok {
		res.Module = p.Path()
	}

	start := time.Now()
	status, err := proc.Process(width, height, imaging.Pixels(img), params)
	res.Duration = time.Since(start)
	res.Status = status

	if err != nil {
		h.metrics.Observe(req.Filter, string(res.Source), telemetry.OutcomeError, 0, 0)
		return nil, fmt.Errorf("failed to run %s: %w", req.Filter, err)
	}
	if !status.OK() {
		h.metrics.Observe(req.Filter, string(res.Source), telemetry.OutcomeFailure, 0, res.Duration)
		h.log.Warn("filter reported failure",
			"filter", req.Filter,
			"source", res.Source,
			"status", status,
			"width", res.Width,
			"height", res.Height,
		)
		return res, fmt.Errorf("%w: %s returned %s", ErrProcessFailed, req.Filter, status)
	}
	h.metrics.Observe(req.Filter, string(res.Source), telemetry.OutcomeSuccess, res.Width*res.Height, res.Duration)

	res.After = imaging.Summarize(img)

	if err := imaging.Save(req.Output, img); err != nil {
		return nil, err
	}
	h.cache.Evict(req.Output)

	h.log.Info("filter applied",
		"filter", req.Filter,
		"source", res.Source,
		"width", res.Width,
		"height", res.Height,
		"duration", res.Duration,
		"mean_before", res.Before.Mean.Hex,
		"mean_after", res.After.Mean.Hex,
		"module", res.Module,
		"output", req.Output,
	)
	return res, nil
}

func (h *Host) readParams(req Request) (string, error) {
	text := req.Params
	if req.ParamsFile != "" {
		if _, err := os.Stat(req.ParamsFile); err != nil {
			return "", fmt.Errorf("%w: %s", ErrParamsFileNotFound, req.ParamsFile)
		}
		raw, err := os.ReadFile(req.ParamsFile)
		if err != nil {
			return "", fmt.Errorf("failed to read params: %w", err)
		}
		text = string(raw)
	}

	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidParams)
	}
	if strings.IndexByte(text, 0) >= 0 {
		return "", fmt.Errorf("%w: contains a NUL byte", ErrInvalidParams)
	}
	return text, nil
}

func dimensions(w, h int) (uint32, uint32, error) {
	if w < 0 || h < 0 || uint64(w) > math.MaxUint32 || uint64(h) > math.MaxUint32 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, w, h)
	}
	return uint32(w), uint32(h), nil
}
