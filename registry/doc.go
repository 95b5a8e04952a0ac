// Package registry tracks the supported languages, which of them can
// currently be built and run, and the toolchain version each reports.
//
// Availability and versions change only during a probing pass (Rebuild),
// which builds every image one language at a time.
package registry
