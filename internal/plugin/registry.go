package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ironsheep/image-filter-host/internal/abi"
	"github.com/ironsheep/image-filter-host/internal/filter"
)

// ErrUnknownFilter is returned when no builtin filter has the requested name.
var ErrUnknownFilter = errors.New("unknown filter")

// Source tells where a Processor's code lives.
type Source string

const (
	SourceNative  Source = "native"
	SourceBuiltin Source = "builtin"
)

// Processor runs one filter over a pixel buffer.
type Processor interface {
	Name() string
	Source() Source
	Process(width, height uint32, pix []byte, params string) (abi.Status, error)
	Close() error
}

// Builtin is a Processor backed by a filter compiled into the host.
type Builtin struct {
	f filter.Filter
}

// NewBuiltin wraps f.
func NewBuiltin(f filter.Filter) *Builtin {
	return &Builtin{f: f}
}

// Name implements Processor.
func (b *Builtin) Name() string { return b.f.Name() }

// Source implements Processor.
func (b *Builtin) Source() Source { return SourceBuiltin }

// Close implements Processor. Builtins hold no resources.
func (b *Builtin) Close() error { return nil }

// Process implements Processor. It applies the filter with the same
// preconditions as a native call.
func (b *Builtin) Process(width, height uint32, pix []byte, params string) (abi.Status, error) {
	_, status, err := preflight(width, height, pix, params)
	if err != nil || !status.OK() {
		return status, err
	}
	return abi.Apply(b.f, width, height, pix, params), nil
}

// Mode selects how a Registry resolves names.
type Mode string

const (
	// ModeNative resolves names only against modules in the plugin directory.
	ModeNative Mode = "native"

	// ModeBuiltin resolves names only against compiled-in filters.
	ModeBuiltin Mode = "builtin"

	// ModeAuto prefers a module in the plugin directory and falls back to a
	// builtin filter when no module file exists.
	ModeAuto Mode = "auto"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNative, ModeBuiltin, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("invalid plugin mode %q (want native, builtin or auto)", s)
	}
}

// Entry describes one resolvable filter.
type Entry struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
}

// Registry resolves logical filter names to Processors.
type Registry struct {
	dir  string
	mode Mode

	mu      sync.RWMutex
	builtin map[string]Processor
	native  map[string]*Plugin
}

// NewRegistry creates a registry over the plugin directory dir.
func NewRegistry(dir string, mode Mode) *Registry {
	return &Registry{
		dir:     dir,
		mode:    mode,
		builtin: make(map[string]Processor),
		native:  make(map[string]*Plugin),
	}
}

// Dir returns the plugin directory.
func (r *Registry) Dir() string { return r.dir }

// Mode returns the resolution mode.
func (r *Registry) Mode() Mode { return r.mode }

// RegisterBuiltin adds a compiled-in processor. Names must be unique.
func (r *Registry) RegisterBuiltin(p Processor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.builtin[name]; exists {
		return fmt.Errorf("builtin filter %q already registered", name)
	}
	r.builtin[name] = p
	return nil
}

// RegisterFilters registers each filter as a Builtin.
func (r *Registry) RegisterFilters(filters ...filter.Filter) error {
	for _, f := range filters {
		if err := r.RegisterBuiltin(NewBuiltin(f)); err != nil {
			return err
		}
	}
	return nil
}

// Open resolves name according to the registry mode. Native plugins are
// loaded on first use and shared by later calls until Close.
func (r *Registry) Open(name string) (Processor, error) {
	switch r.mode {
	case ModeBuiltin:
		return r.lookupBuiltin(name)
	case ModeAuto:
		p, err := r.loadNative(name)
		if errors.Is(err, ErrPluginNotFound) {
			if b, berr := r.lookupBuiltin(name); berr == nil {
				return b, nil
			}
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		p, err := r.loadNative(name)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (r *Registry) lookupBuiltin(name string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.builtin[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
}

func (r *Registry) loadNative(name string) (*Plugin, error) {
	r.mu.RLock()
	p, ok := r.native[name]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have loaded it while the lock was released.
	if p, ok := r.native[name]; ok {
		return p, nil
	}
	p, err := Load(r.dir, name)
	if err != nil {
		return nil, err
	}
	r.native[name] = p
	return p, nil
}

// Available lists the filters Open could resolve, sorted by name. In auto
// mode a native module shadows the builtin of the same name.
func (r *Registry) Available() ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]Source)
	if r.mode != ModeBuiltin {
		names, err := Discover(r.dir)
		if err != nil && r.mode == ModeNative {
			return nil, err
		}
		for _, name := range names {
			seen[name] = SourceNative
		}
	}
	if r.mode != ModeNative {
		for name := range r.builtin {
			if _, ok := seen[name]; !ok {
				seen[name] = SourceBuiltin
			}
		}
	}

	entries := make([]Entry, 0, len(seen))
	for name, src := range seen {
		entries = append(entries, Entry{Name: name, Source: src})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Close unloads every native plugin opened through the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, p := range r.native {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.native, name)
	}
	return errors.Join(errs...)
}
