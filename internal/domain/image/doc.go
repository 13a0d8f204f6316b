// Package image contains the core domain types of an assembly run.
//
// It defines the host Platform, the application Version with its short form
// accepted by the packaging executable, the StagedInputs produced by the
// stager, the Actor recorded in the assembly manifest, and the error taxonomy
// shared by every stage.
package image
