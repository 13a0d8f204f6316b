// Package assembler is the entry point of the assembly pipeline: it stages the
// inputs, builds the platform installer, archives dist/ into the configured
// archive and optionally writes a manifest and publishes both.
package assembler
