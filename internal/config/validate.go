package config

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
)

// Validator collects every problem of a Config instead of stopping at the
// first one. The mail server itself is the judge of everything else.
type Validator struct {
	errors []string
}

func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// ValidatePoller checks what the poller needs: credentials and a usable
// schedule.
func (cv *Validator) ValidatePoller(cfg Config) []string {
	cv.errors = make([]string, 0)

	cv.validateIMAP(cfg.IMAP)
	cv.validatePoll(cfg.Poll)
	cv.validateStore(cfg.Store)

	return cv.errors
}

// ValidateServe checks everything the serve command needs.
func (cv *Validator) ValidateServe(cfg Config) []string {
	cv.ValidatePoller(cfg)
	cv.validateWeb(cfg.Web)

	return cv.errors
}

// ValidateStatus checks what the read-only status page needs.
func (cv *Validator) ValidateStatus(cfg Config) []string {
	cv.errors = make([]string, 0)

	cv.validateStore(cfg.Store)
	cv.validateWeb(cfg.Web)

	return cv.errors
}

func (cv *Validator) addError(message string) {
	cv.errors = append(cv.errors, message)
	slog.Debug("Config validation error", "error", message)
}

func (cv *Validator) validateIMAP(c IMAP) {
	if c.Server == "" {
		cv.addError("IMAP server is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		cv.addError("IMAP port must be between 1 and 65535")
	}

	validSecurityTypes := []string{"ssl", "starttls"}
	if !slices.Contains(validSecurityTypes, strings.ToLower(c.Security)) {
		cv.addError("IMAP security must be one of: ssl, starttls")
	}

	if c.Username == "" {
		cv.addError("IMAP username (EMAIL_ACCOUNT) is required")
	}

	if c.Password == "" {
		cv.addError("IMAP password (EMAIL_PASSWORD) is required")
	}

	if c.Timeout < 0 {
		cv.addError("IMAP timeout must not be negative")
	}
}

func (cv *Validator) validatePoll(c Poll) {
	if c.Interval <= 0 {
		cv.addError("Poll interval (CHECK_INTERVAL) must be at least 1 second")
	}

	if c.MaxAuthFailures < 0 {
		cv.addError("Max auth failures must not be negative")
	}
}

func (cv *Validator) validateStore(c Store) {
	if c.Path == "" {
		cv.addError("Store path (DB_FILE) is required")
	}
}

func (cv *Validator) validateWeb(c Web) {
	if c.Port <= 0 || c.Port > 65535 {
		cv.addError("Web port must be between 1 and 65535")
	}
}

// Join turns validation messages into a single error, or nil when there are
// none.
func Join(messages []string) error {
	if len(messages) == 0 {
		return nil
	}

	errs := make([]error, 0, len(messages))
	for _, m := range messages {
		errs = append(errs, errors.New(m))
	}

	return errors.Join(errs...)
}
