package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokamak-network/trh-platform-desktop/internal/domain"
)

func TestValidateCredentials_EmptyPairAllowed(t *testing.T) {
	assert.NoError(t, ValidateCredentials("", ""))
}

func TestValidateCredentials_HalfPairRejected(t *testing.T) {
	assert.Error(t, ValidateCredentials("admin@example.com", ""))
	assert.Error(t, ValidateCredentials("", "password123"))
}

func TestValidateCredentials_EmailShape(t *testing.T) {
	err := ValidateCredentials("not-an-email", "password123")
	require.Error(t, err)
	assert.Equal(t, domain.ConfigurationError, domain.KindOf(err))

	assert.NoError(t, ValidateCredentials("admin@example.com", "password123"))
}

func TestValidateCredentials_EmailLength(t *testing.T) {
	// 255 characters total: rejected. 254 or less: accepted.
	local := strings.Repeat("a", 255-len("@example.com"))
	tooLong := local + "@example.com"
	require.Len(t, tooLong, 255)
	assert.Error(t, ValidateCredentials(tooLong, "password123"))

	okLocal := strings.Repeat("a", 254-len("@example.com"))
	assert.NoError(t, ValidateCredentials(okLocal+"@example.com", "password123"))
}

func TestValidateCredentials_PasswordLength(t *testing.T) {
	assert.Error(t, ValidateCredentials("admin@example.com", "seven77"))
	assert.NoError(t, ValidateCredentials("admin@example.com", "eight888"))
	assert.NoError(t, ValidateCredentials("admin@example.com", "!@#$%^&*"))
	assert.NoError(t, ValidateCredentials("admin@example.com", strings.Repeat("x", 128)))
	assert.Error(t, ValidateCredentials("admin@example.com", strings.Repeat("x", 129)))
}
