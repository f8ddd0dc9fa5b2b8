//go:build (darwin || freebsd || linux || netbsd) && !android

package plugin

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/ironsheep/image-filter-host/internal/abi"
)

type dlLibrary struct {
	handle uintptr
	entry  func(width, height uint32, data *byte, params string) int32
}

func openLibrary(path string) (library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}

	sym, err := purego.Dlsym(handle, abi.EntryPoint)
	if err != nil {
		_ = purego.Dlclose(handle)
		return nil, fmt.Errorf("resolve %s: %w", abi.EntryPoint, err)
	}

	l := &dlLibrary{handle: handle}
	purego.RegisterFunc(&l.entry, sym)
	return l, nil
}

// call passes params as a Go string. Process has already rejected NUL, so
// purego copies it into a NUL-terminated buffer that lives for the call.
func (l *dlLibrary) call(width, height uint32, data *byte, params string) int32 {
	return l.entry(width, height, data, params)
}

func (l *dlLibrary) close() error {
	return purego.Dlclose(l.handle)
}
