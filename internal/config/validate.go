package config

import (
	"regexp"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

const (
	maxEmailLength    = 254
	minPasswordLength = 8
	maxPasswordLength = 128
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateCredentials rejects a malformed admin credential pair before any
// subprocess is spawned with it. An entirely empty pair is valid: the
// backend falls back to its built-in defaults.
func ValidateCredentials(email, password string) error {
	if email == "" && password == "" {
		return nil
	}
	if email == "" || password == "" {
		return domain.E(domain.ConfigurationError,
			"admin email and password must be provided together")
	}
	if len(email) > maxEmailLength {
		return domain.E(domain.ConfigurationError,
			"admin email exceeds %d characters", maxEmailLength)
	}
	if !emailPattern.MatchString(email) {
		return domain.E(domain.ConfigurationError,
			"admin email %q is not a valid address", email)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return domain.E(domain.ConfigurationError,
			"admin password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
	}
	return nil
}
