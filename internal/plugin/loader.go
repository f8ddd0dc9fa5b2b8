package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/ironsheep/image-filter-host/internal/abi"
)

var (
	// ErrPluginNotFound is returned when the module file does not exist.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrLibraryLoad is returned when the module cannot be opened or does
	// not export the entry point.
	ErrLibraryLoad = errors.New("library load error")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("plugin closed")

	// ErrShortBuffer is returned when the pixel slice is shorter than the
	// dimensions require. The module is not called.
	ErrShortBuffer = errors.New("pixel buffer shorter than width*height*4")

	// ErrInvalidParams is returned when params contain a NUL byte and cannot
	// be passed as a C string.
	ErrInvalidParams = errors.New("params contain a NUL byte")
)

// library is an opened module with its entry point resolved. Implementations
// are platform specific.
type library interface {
	// call invokes process_image. data is nil only when no bytes are
	// required.
	call(width, height uint32, data *byte, params string) int32
	close() error
}

// LibraryName returns the module file name for a logical plugin name on the
// running platform.
func LibraryName(name string) string {
	return libraryName(runtime.GOOS, name)
}

func libraryName(goos, name string) string {
	switch goos {
	case "windows":
		return name + ".dll"
	case "darwin", "ios":
		return "lib" + name + ".dylib"
	default:
		return "lib" + name + ".so"
	}
}

// pluginName is the inverse of libraryName.
func pluginName(goos, file string) (string, bool) {
	var prefix, ext string
	switch goos {
	case "windows":
		ext = ".dll"
	case "darwin", "ios":
		prefix, ext = "lib", ".dylib"
	default:
		prefix, ext = "lib", ".so"
	}
	if !strings.HasPrefix(file, prefix) || !strings.HasSuffix(file, ext) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(file, prefix), ext)
	if name == "" {
		return "", false
	}
	return name, true
}

// Discover lists the logical names of the modules present in dir, sorted.
// Subdirectories are not searched.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := pluginName(runtime.GOOS, entry.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Plugin is a loaded native module bound to its process_image entry point.
type Plugin struct {
	name string
	path string

	mu  sync.RWMutex
	lib library
}

// Load opens the module for name in dir and resolves its entry point.
//
// The path is checked for existence before the platform loader is involved,
// so a missing file is always ErrPluginNotFound and never ErrLibraryLoad.
func Load(dir, name string) (*Plugin, error) {
	path := filepath.Join(dir, LibraryName(name))
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, path)
	}

	lib, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLibraryLoad, path, err)
	}

	return &Plugin{name: name, path: path, lib: lib}, nil
}

// Name implements Processor.
func (p *Plugin) Name() string { return p.name }

// Source implements Processor.
func (p *Plugin) Source() Source { return SourceNative }

// Path returns the module file the plugin was loaded from.
func (p *Plugin) Path() string { return p.path }

// Process calls the module's process_image over pix.
//
// The caller-side preconditions of the entry point are enforced here, before
// the foreign call: pix must cover width*height*4 bytes and params must not
// contain NUL. Dimensions whose byte length overflows are answered with
// abi.Failure without calling the module, since no buffer can satisfy them.
func (p *Plugin) Process(width, height uint32, pix []byte, params string) (abi.Status, error) {
	n, status, err := preflight(width, height, pix, params)
	if err != nil || !status.OK() {
		return status, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.lib == nil {
		return abi.Failure, fmt.Errorf("%w: %s", ErrClosed, p.name)
	}

	var data *byte
	if n > 0 {
		data = &pix[0]
	}
	return abi.Status(p.lib.call(width, height, data, params)), nil
}

// Close unloads the module. It waits for in-flight calls and is safe to call
// more than once.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lib == nil {
		return nil
	}
	err := p.lib.close()
	p.lib = nil
	if err != nil {
		return fmt.Errorf("failed to unload %s: %w", p.path, err)
	}
	return nil
}

// preflight checks what the caller of process_image must guarantee. It
// returns the required byte length when the call may proceed.
func preflight(width, height uint32, pix []byte, params string) (int, abi.Status, error) {
	if strings.IndexByte(params, 0) >= 0 {
		return 0, abi.Failure, ErrInvalidParams
	}
	l, err := abi.Validate(width, height)
	if err != nil {
		return 0, abi.Failure, nil
	}
	if len(pix) < l.Len {
		return 0, abi.Failure, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(pix), l.Len)
	}
	return l.Len, abi.Success, nil
}
