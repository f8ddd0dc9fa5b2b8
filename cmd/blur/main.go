// Command blur is the box blur filter packaged as a native plugin module.
//
// Build it as a shared library exporting process_image:
//
//	go build -buildmode=c-shared -o plugins/libblur.so ./cmd/blur
//
// Configuration: {"radius": <uint>, "iterations": <uint>}, defaulting to
// radius 1 and one iteration.
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
	status := abi.ProcessImage(uint32(width), uint32(height), unsafe.Pointer(data), unsafe.Pointer(params), filter.BoxBlur{})
	return C.int32_t(status)
}

// main is required by -buildmode=c-shared and never runs.
func main() {}
