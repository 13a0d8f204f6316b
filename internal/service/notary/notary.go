// Package notary submits disk images to the Apple notary service, waits for a
// verdict and staples the ticket.
package notary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/shell"
)

// Status is a notarization submission state as reported by notarytool.
type Status string

const (
	// StatusInProgress means the service has not decided yet.
	StatusInProgress Status = "In Progress"
	// StatusAccepted means the image may be stapled and shipped.
	StatusAccepted Status = "Accepted"
	// StatusInvalid means the submission failed validation.
	StatusInvalid Status = "Invalid"
	// StatusRejected means the service refused the submission.
	StatusRejected Status = "Rejected"
)

// Terminal reports whether polling may stop.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusInvalid, StatusRejected:
		return true
	default:
		return false
	}
}

const xcrun = "xcrun"

var (
	errNoSubmissionID = errors.New("notarytool returned no submission id")
	errNoJSON         = errors.New("no JSON object in notarytool output")
)

// submission is the subset of notarytool JSON output the notarizer reads.
type submission struct {
	// ID identifies the submission.
	ID string `json:"id"`
	// Status is present in info output.
	Status Status `json:"status"`
	// Message is a human readable note.
	Message string `json:"message"`
}

// Notarizer drives xcrun notarytool and stapler.
type Notarizer struct {
	// exec runs xcrun.
	exec shell.Executor
}

// New creates a Notarizer.
func New(exec shell.Executor) *Notarizer {
	return &Notarizer{exec: exec}
}

// Notarize submits dmgPath, polls until a terminal status or the configured
// timeout, and staples the ticket on acceptance. Every failure other than
// cancellation of ctx wraps image.ErrNotarization.
func (n *Notarizer) Notarize(ctx context.Context, dmgPath string, opts *config.AppleCodeSigning) error {
	ctx = logger.WithName(ctx, "notary")

	timeout := opts.NotarizationTimeout
	if timeout <= 0 {
		timeout = config.DefaultNotarizationTimeout
	}

	interval := opts.NotarizationPollInterval
	if interval <= 0 {
		interval = config.DefaultNotarizationPollInterval
	}

	logger.InfoKV(ctx, "Submitting for notarization", "path", dmgPath)

	out, err := n.notarytool(ctx, opts, "submit", dmgPath)
	if err != nil {
		return fmt.Errorf("%w: submit: %w", image.ErrNotarization, err)
	}

	sub, err := parseSubmission(out)
	if err != nil {
		return fmt.Errorf("%w: submit: %w", image.ErrNotarization, err)
	}

	if sub.ID == "" {
		return fmt.Errorf("%w: %w", image.ErrNotarization, errNoSubmissionID)
	}

	logger.InfoKV(ctx, "Submitted", "id", sub.ID, "timeout", timeout)

	status, err := n.wait(ctx, sub.ID, opts, timeout, interval)
	if err != nil {
		return err
	}

	if status != StatusAccepted {
		return n.rejected(ctx, sub.ID, status, opts)
	}

	logger.InfoKV(ctx, "Notarization accepted, stapling ticket", "id", sub.ID)

	if _, err = n.exec.Execute(ctx, shell.Command{Args: []string{xcrun, "stapler", "staple", dmgPath}}); err != nil {
		return fmt.Errorf("%w: staple: %w", image.ErrNotarization, err)
	}

	return nil
}

// wait polls the submission status at most once per interval.
func (n *Notarizer) wait(
	ctx context.Context,
	id string,
	opts *config.AppleCodeSigning,
	timeout, interval time.Duration,
) (Status, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			return "", fmt.Errorf("%w: no verdict for %s within %s", image.ErrNotarization, id, timeout)
		}

		out, err := n.notarytool(pollCtx, opts, "info", id)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return "", fmt.Errorf("%w: no verdict for %s within %s", image.ErrNotarization, id, timeout)
			}

			return "", fmt.Errorf("%w: info: %w", image.ErrNotarization, err)
		}

		info, err := parseSubmission(out)
		if err != nil {
			return "", fmt.Errorf("%w: info: %w", image.ErrNotarization, err)
		}

		logger.DebugKV(ctx, "Notarization status", "id", id, "status", info.Status)

		if info.Status.Terminal() {
			return info.Status, nil
		}
	}
}

// rejected fetches the notary log for the diagnostic and builds the error.
func (n *Notarizer) rejected(ctx context.Context, id string, status Status, opts *config.AppleCodeSigning) error {
	log, err := n.notarytool(ctx, opts, "log", id)
	if err != nil {
		logger.WarnKV(ctx, "Failed to fetch notary log", "id", id, "error", err)

		return fmt.Errorf("%w: submission %s: %s", image.ErrNotarization, id, status)
	}

	return fmt.Errorf("%w: submission %s: %s\n%s", image.ErrNotarization, id, status, strings.TrimSpace(log))
}

func (n *Notarizer) notarytool(ctx context.Context, opts *config.AppleCodeSigning, args ...string) (string, error) {
	argv := make([]string, 0, len(args)+12)
	argv = append(argv, xcrun, "notarytool")
	argv = append(argv, args...)
	argv = append(argv,
		"--apple-id", opts.AppleID,
		"--team-id", opts.TeamID,
		"--password", opts.AppleIDPassword,
		"--output-format", "json",
	)

	res, err := n.exec.Execute(ctx, shell.Command{Args: argv})

	return res.Output, err
}

// parseSubmission decodes the JSON object in out; notarytool may print
// progress lines around it.
func parseSubmission(out string) (*submission, error) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")

	if start < 0 || end < start {
		return nil, errNoJSON
	}

	var sub submission
	if err := json.Unmarshal([]byte(out[start:end+1]), &sub); err != nil {
		return nil, fmt.Errorf("decode notarytool output: %w", err)
	}

	return &sub, nil
}
