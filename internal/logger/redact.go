package logger

import "strings"

const (
	// RedactedPlaceholder replaces secrets in logged text.
	RedactedPlaceholder = "********"
	// MinSecretLength is the shortest value the redactor masks. Shorter values
	// would match inside ordinary words and make messages unreadable.
	MinSecretLength = 4
)

// Redactor hides known secret values in strings destined for the log.
// The zero value redacts nothing.
type Redactor struct {
	secrets []string
	reveal  bool
}

// NewRedactor returns a redactor for the given secrets. Values shorter than
// MinSecretLength are ignored.
// When reveal is true the redactor is a no-op, matching logging.log_sensitive_data.
func NewRedactor(reveal bool, secrets ...string) *Redactor {
	r := &Redactor{reveal: reveal}
	r.Add(secrets...)

	return r
}

// Redact replaces every occurrence of every secret in s.
func (r *Redactor) Redact(s string) string {
	if r == nil || r.reveal {
		return s
	}

	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, RedactedPlaceholder)
	}

	return s
}

// Add registers more secrets, e.g. values generated during the run.
func (r *Redactor) Add(secrets ...string) {
	if r == nil {
		return
	}

	for _, s := range secrets {
		if len(s) >= MinSecretLength {
			r.secrets = append(r.secrets, s)
		}
	}
}
