// Package plugin loads filter modules and resolves filters by name.
//
// A native plugin is a shared library in a plugin directory exporting the
// process_image entry point (see package abi). Its file name follows the
// platform convention for loadable modules:
//
//   - Linux and other unix: lib<name>.so
//   - macOS: lib<name>.dylib
//   - Windows: <name>.dll
//
// The path is looked up literally in the configured directory. There is no
// search path, version suffix or fallback location.
//
// # Symbol Resolution
//
// Modules are opened with dlopen(RTLD_NOW|RTLD_LOCAL) through purego on
// unix, which needs no cgo, and with LoadDLL on Windows.
//
// The entry point is resolved purely by name. No signature or version check
// exists, so a module that exports an incompatible process_image is called
// anyway. That risk is accepted at this boundary.
//
// # Lifetime
//
// A Plugin owns its module handle exclusively. Process holds a read lock for
// the duration of the foreign call and Close takes the write lock before
// unloading, so the module is never unloaded under an in-flight call.
//
// # Registry
//
// Registry maps logical names to Processors. Builtin processors wrap filters
// compiled into the host; native processors are Plugins loaded on first use
// and cached until Close. The resolution Mode picks between them.
//
// # Error Channels
//
// Processor.Process returns the boundary status and an error separately. The
// error reports host-side problems (closed plugin, buffer shorter than the
// dimensions, params that cannot cross as a C string) and means the module
// was not called. The status is whatever the filter reported.
package plugin
