package image

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction marks a malformed or missing archive or asset.
	ErrExtraction = errors.New("extraction failed")
	// ErrPayloadLayout marks a source payload without exactly one top-level directory.
	ErrPayloadLayout = errors.New("unexpected payload layout")
	// ErrMissingTool marks a packaging executable or installer toolkit that cannot be found.
	ErrMissingTool = errors.New("required tool not found")
	// ErrSigning marks a keychain or code signing failure.
	ErrSigning = errors.New("code signing failed")
	// ErrNotarization marks a rejected or timed out notarization.
	ErrNotarization = errors.New("notarization failed")
	// ErrExternalProcess marks an invoked tool that exited non-zero.
	ErrExternalProcess = errors.New("external process failed")
	// ErrUnexpectedOutput marks a packaging output directory that does not hold exactly one artifact.
	ErrUnexpectedOutput = errors.New("unexpected packaging output")
	// ErrUnsupportedPlatform marks a host OS without a build strategy.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// StageError names the pipeline stage and tool that failed.
type StageError struct {
	// Stage is the pipeline step, e.g. "pack" or "notarize".
	Stage string
	// Tool is the external tool involved, if any.
	Tool string
	// Err is the underlying error.
	Err error
}

// NewStageError wraps err with stage and tool. A nil err yields nil.
func NewStageError(stage, tool string, err error) error {
	if err == nil {
		return nil
	}

	return &StageError{Stage: stage, Tool: tool, Err: err}
}

// Error implements error.
func (e *StageError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}

	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Tool, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}
