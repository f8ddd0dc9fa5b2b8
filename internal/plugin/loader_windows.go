//go:build windows

package plugin

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ironsheep/image-filter-host/internal/abi"
)

type dllLibrary struct {
	dll  *windows.DLL
	proc *windows.Proc
}

func openLibrary(path string) (library, error) {
	dll, err := windows.LoadDLL(path)
	if err != nil {
		return nil, err
	}
	proc, err := dll.FindProc(abi.EntryPoint)
	if err != nil {
		_ = dll.Release()
		return nil, err
	}
	return &dllLibrary{dll: dll, proc: proc}, nil
}

func (l *dllLibrary) call(width, height uint32, data *byte, params string) int32 {
	// Process rejects NUL before getting here.
	cparams, err := windows.BytePtrFromString(params)
	if err != nil {
		return int32(abi.Failure)
	}

	r, _, _ := l.proc.Call(
		uintptr(width),
		uintptr(height),
		uintptr(unsafe.Pointer(data)),
		uintptr(unsafe.Pointer(cparams)),
	)
	runtime.KeepAlive(data)
	runtime.KeepAlive(cparams)

	// int32_t comes back in the low half of the register.
	return int32(uint32(r))
}

func (l *dllLibrary) close() error {
	return l.dll.Release()
}
