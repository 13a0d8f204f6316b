// Package stager extracts the runtime, toolchain and application payload into
// the working directory and resolves the optional assets, producing the
// StagedInputs the image builder reads.
package stager
