// Command mirror is the mirror filter packaged as a native plugin module.
//
// Build it as a shared library exporting process_image:
//
//	go build -buildmode=c-shared -o plugins/libmirror.so ./cmd/mirror
//
// Configuration: {"horizontal": <bool>, "vertical": <bool>}, defaulting to
// both false.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/ironsheep/image-filter-host/internal/abi"
	"github.com/ironsheep/image-filter-host/internal/filter"
)

//export process_image
func process_image(width, height C.uint32_t, data *C.uint8_t, params *C.char) C.int32_t {
	status := abi.ProcessImage(uint32(width), uint32(height), unsafe.Pointer(data), unsafe.Pointer(params), filter.Mirror{})
	return C.int32_t(status)
}

func main() {}
