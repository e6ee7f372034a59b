package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testArgon2Params keep hashing cheap in tests while staying above the
// algorithm's minimums.
var testArgon2Params = Argon2Params{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestArgon2HashAndVerify(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)

	encoded, err := h.Hash("pw123456")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"), "expected PHC format, got %q", encoded)

	require.NoError(t, h.Verify(encoded, "pw123456"))
	assert.ErrorIs(t, h.Verify(encoded, "pw1234567"), ErrPasswordMismatch)
}

func TestArgon2SaltIsPerCall(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)

	first, err := h.Hash("pw123456")
	require.NoError(t, err)
	second, err := h.Hash("pw123456")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two hashes of the same password must differ")
	require.NoError(t, h.Verify(first, "pw123456"))
	require.NoError(t, h.Verify(second, "pw123456"))
}

func TestArgon2RejectsEmptyPassword(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)
	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestArgon2VerifyMalformedHash(t *testing.T) {
	h := NewArgon2Hasher(testArgon2Params)

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$not-base64!$aGFzaA",
	} {
		assert.ErrorIs(t, h.Verify(encoded, "pw123456"), ErrInvalidInput, "hash %q", encoded)
	}
}

func TestArgon2VerifySurvivesParameterChange(t *testing.T) {
	old := NewArgon2Hasher(testArgon2Params)
	encoded, err := old.Hash("pw123456")
	require.NoError(t, err)

	// A hasher configured with different params must still verify hashes
	// produced earlier: the PHC string carries its own parameters.
	current := NewArgon2Hasher(Argon2Params{
		Memory:      16 * 1024,
		Iterations:  2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, current.Verify(encoded, "pw123456"))
}
