// Command build-images builds every language image once, probes toolchain
// versions and prints the resulting availability table.
//
// Usage:
//
//	build-images --config config.yaml --prune
//
// It exits non-zero when no language could be built.
package main
