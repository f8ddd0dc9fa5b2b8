package host

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-filter-host/internal/abi"
	"github.com/ironsheep/image-filter-host/internal/config"
	"github.com/ironsheep/image-filter-host/internal/imaging"
	"github.com/ironsheep/image-filter-host/internal/plugin"
	"github.com/ironsheep/image-filter-host/internal/telemetry"
)

// failingProcessor always reports the boundary failure code.
type failingProcessor struct{}

func (failingProcessor) Name() string          { return "broken" }
func (failingProcessor) Source() plugin.Source { return plugin.SourceBuiltin }
func (failingProcessor) Close() error          { return nil }
func (failingProcessor) Process(uint32, uint32, []byte, string) (abi.Status, error) {
	return abi.Failure, nil
}

func builtinConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = string(plugin.ModeBuiltin)
	cfg.PluginDir = t.TempDir()
	return cfg
}

func newHost(t *testing.T, cfg config.Config, opts ...Option) *Host {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}, opts...)
	h, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Close()
		abi.SetLogger(nil)
	})
	return h
}

// writeImage saves a w x h PNG whose pixel at (x, y) is px(x, y).
func writeImage(t *testing.T, dir string, w, h int, px func(x, y int) color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, px(x, y))
		}
	}
	path := filepath.Join(dir, "input.png")
	require.NoError(t, imaging.Save(path, img))
	return path
}

func writeParams(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "params.json")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func redBlue(x, _ int) color.NRGBA {
	if x == 0 {
		return red
	}
	return blue
}

func TestRun_MirrorHorizontal(t *testing.T) {
	dir := t.TempDir()
	h := newHost(t, builtinConfig(t))
	out := filepath.Join(dir, "out.png")

	res, err := h.Run(context.Background(), Request{
		Input:      writeImage(t, dir, 2, 1, redBlue),
		Output:     out,
		Filter:     "mirror",
		ParamsFile: writeParams(t, dir, `{"horizontal": true, "vertical": false}`),
	})

	require.NoError(t, err)
	require.Equal(t, abi.Success, res.Status)
	require.Equal(t, plugin.SourceBuiltin, res.Source)
	require.Empty(t, res.Module)
	require.Equal(t, 2, res.Width)
	require.Equal(t, 1, res.Height)

	got, err := imaging.LoadRGBA(imaging.NewImageCache(), out)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, got.Pix)
}

func TestRun_BlurUniformImageUnchanged(t *testing.T) {
	dir := t.TempDir()
	h := newHost(t, builtinConfig(t))
	out := filepath.Join(dir, "out.bmp")
	gray := color.NRGBA{R: 90, G: 90, B: 90, A: 255}

	res, err := h.Run(context.Background(), Request{
		Input:  writeImage(t, dir, 5, 4, func(int, int) color.NRGBA { return gray }),
		Output: out,
		Filter: "blur",
		Params: `{"radius": 3, "iterations": 4}`,
	})

	require.NoError(t, err)
	require.Equal(t, res.Before.Mean, res.After.Mean)
	require.Equal(t, "#5A5A5A", res.After.Mean.Hex)

	got, err := imaging.LoadRGBA(imaging.NewImageCache(), out)
	require.NoError(t, err)
	for i := 0; i < len(got.Pix); i += 4 {
		require.Equal(t, []byte{90, 90, 90, 255}, got.Pix[i:i+4])
	}
}

func TestRun_EmptyParamsUseDefaults(t *testing.T) {
	dir := t.TempDir()
	h := newHost(t, builtinConfig(t))
	input := writeImage(t, dir, 3, 1, func(x, _ int) color.NRGBA {
		return color.NRGBA{R: uint8(x * 100), A: 255}
	})

	withEmpty, err := h.Run(context.Background(), Request{
		Input: input, Output: filepath.Join(dir, "a.png"), Filter: "blur",
		ParamsFile: writeParams(t, dir, ""),
	})
	require.NoError(t, err)

	withDefaults, err := h.Run(context.Background(), Request{
		Input: input, Output: filepath.Join(dir, "b.png"), Filter: "blur",
		Params: `{"radius": 1, "iterations": 1}`,
	})
	require.NoError(t, err)

	require.Equal(t, withDefaults.After, withEmpty.After)
}

func TestRun_InputChecks(t *testing.T) {
	dir := t.TempDir()
	input := writeImage(t, dir, 1, 1, redBlue)
	out := filepath.Join(dir, "out.png")

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{
			name: "missing input",
			req:  Request{Input: filepath.Join(dir, "nope.png"), Output: out, Filter: "mirror"},
			want: ErrInputImageNotFound,
		},
		{
			name: "missing params file",
			req:  Request{Input: input, Output: out, Filter: "mirror", ParamsFile: filepath.Join(dir, "nope.json")},
			want: ErrParamsFileNotFound,
		},
		{
			name: "params not utf-8",
			req:  Request{Input: input, Output: out, Filter: "mirror", Params: "{\"horizontal\": \xff}"},
			want: ErrInvalidParams,
		},
		{
			name: "params with nul",
			req:  Request{Input: input, Output: out, Filter: "mirror", Params: "{}\x00"},
			want: ErrInvalidParams,
		},
		{
			name: "unsupported output",
			req:  Request{Input: input, Output: filepath.Join(dir, "out.gif"), Filter: "mirror"},
			want: imaging.ErrUnsupportedFormat,
		},
		{
			name: "unknown builtin",
			req:  Request{Input: input, Output: out, Filter: "sharpen"},
			want: plugin.ErrUnknownFilter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHost(t, builtinConfig(t))

			_, err := h.Run(context.Background(), tt.req)

			require.ErrorIs(t, err, tt.want)
			require.NoFileExists(t, tt.req.Output)
		})
	}
}

func TestRun_InputNotAnImage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.png")
	require.NoError(t, os.WriteFile(input, []byte("plain text"), 0o644))
	h := newHost(t, builtinConfig(t))

	_, err := h.Run(context.Background(), Request{Input: input, Output: filepath.Join(dir, "o.png"), Filter: "blur"})

	require.ErrorIs(t, err, imaging.ErrDecode)
}

func TestRun_NativePluginNotFound(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.PluginDir = filepath.Join(dir, "plugins")
	h := newHost(t, cfg)

	_, err := h.Run(context.Background(), Request{
		Input:  writeImage(t, dir, 1, 1, redBlue),
		Output: filepath.Join(dir, "out.png"),
		Filter: "blur",
	})

	require.ErrorIs(t, err, plugin.ErrPluginNotFound)
	require.ErrorContains(t, err, plugin.LibraryName("blur"))
}

func TestRun_AutoFallsBackToBuiltin(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Mode = string(plugin.ModeAuto)
	cfg.PluginDir = filepath.Join(dir, "plugins")
	h := newHost(t, cfg)

	res, err := h.Run(context.Background(), Request{
		Input:  writeImage(t, dir, 2, 2, redBlue),
		Output: filepath.Join(dir, "out.png"),
		Filter: "mirror",
		Params: `{"horizontal": false, "vertical": true}`,
	})

	require.NoError(t, err)
	require.Equal(t, plugin.SourceBuiltin, res.Source)
}

func TestRun_FailureStatusWritesNothing(t *testing.T) {
	dir := t.TempDir()
	reg := plugin.NewRegistry(dir, plugin.ModeBuiltin)
	require.NoError(t, reg.RegisterBuiltin(failingProcessor{}))
	metrics := telemetry.New()
	h := newHost(t, builtinConfig(t), WithRegistry(reg), WithMetrics(metrics))
	out := filepath.Join(dir, "out.png")

	res, err := h.Run(context.Background(), Request{
		Input:  writeImage(t, dir, 2, 2, redBlue),
		Output: out,
		Filter: "broken",
	})

	require.ErrorIs(t, err, ErrProcessFailed)
	require.NotNil(t, res)
	require.Equal(t, abi.Failure, res.Status)
	require.NoFileExists(t, out)

	textfile := filepath.Join(dir, "metrics.prom")
	require.NoError(t, metrics.WriteTextfile(textfile))
	body, err := os.ReadFile(textfile)
	require.NoError(t, err)
	require.Contains(t, string(body), `outcome="failure"`)
}

func TestRun_RecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	metrics := telemetry.New()
	h := newHost(t, builtinConfig(t), WithMetrics(metrics))
	require.Same(t, metrics, h.Metrics())

	_, err := h.Run(context.Background(), Request{
		Input:  writeImage(t, dir, 3, 2, redBlue),
		Output: filepath.Join(dir, "out.png"),
		Filter: "blur",
	})
	require.NoError(t, err)

	textfile := filepath.Join(dir, "metrics.prom")
	require.NoError(t, metrics.WriteTextfile(textfile))
	body, err := os.ReadFile(textfile)
	require.NoError(t, err)
	require.Contains(t, string(body), `image_filter_calls_total{filter="blur",outcome="success",source="builtin"} 1`)
	require.Contains(t, string(body), `image_filter_pixels_total{filter="blur"} 6`)
}

func TestRun_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	h := newHost(t, builtinConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(dir, "out.png")

	_, err := h.Run(ctx, Request{Input: writeImage(t, dir, 1, 1, redBlue), Output: out, Filter: "mirror"})

	require.ErrorIs(t, err, context.Canceled)
	require.NoFileExists(t, out)
}

func TestFilters(t *testing.T) {
	h := newHost(t, builtinConfig(t))

	entries, err := h.Filters()

	require.NoError(t, err)
	require.Equal(t, []plugin.Entry{
		{Name: "blur", Source: plugin.SourceBuiltin},
		{Name: "mirror", Source: plugin.SourceBuiltin},
	}, entries)
}

func TestNew_InvalidMode(t *testing.T) {
	cfg := config.Default()
	cfg.Mode = "static"

	_, err := New(cfg)

	require.Error(t, err)
}

func TestDimensions(t *testing.T) {
	w, h, err := dimensions(640, 480)
	require.NoError(t, err)
	require.Equal(t, uint32(640), w)
	require.Equal(t, uint32(480), h)

	_, _, err = dimensions(-1, 1)
	require.ErrorIs(t, err, ErrImageTooLarge)
}
