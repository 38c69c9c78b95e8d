package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-session-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndVerify(t *testing.T) {
	b := &Bcrypt{Cost: bcrypt.MinCost}

	digest, err := b.Hash("Abc12345!")
	require.NoError(t, err)
	assert.NotEqual(t, "Abc12345!", digest)

	assert.True(t, b.Verify("Abc12345!", digest))
	assert.False(t, b.Verify("abc12345!", digest))
}

func TestBcrypt_MalformedDigest(t *testing.T) {
	assert.False(t, NewBcrypt().Verify("x", "not-a-bcrypt-hash"))
}

func TestBcrypt_TooLongIsNotAccepted(t *testing.T) {
	b := &Bcrypt{Cost: bcrypt.MinCost}
	_, err := b.Hash("Aa1" + strings.Repeat("é", 40))
	assert.True(t, errors.Is(err, domain.ErrNotAccepted))
}
