//go:build android || !(darwin || freebsd || linux || netbsd || windows)

package plugin

import (
	"fmt"
	"runtime"
)

func openLibrary(string) (library, error) {
	return nil, fmt.Errorf("native plugins are not supported on %s", runtime.GOOS)
}
