package auth

import (
	"golang.org/x/crypto/argon2"
)

// Argon2Params holds the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultArgon2Params follows the OWASP recommendation.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024, // 64 MB
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// Argon2Hasher hashes passwords with argon2id and a per-password random salt.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher creates a hasher. Zero params fall back to DefaultArgon2Params.
func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	if params == (Argon2Params{}) {
		params = DefaultArgon2Params
	}
	return &Argon2Hasher{params: params}
}

// Hash hashes a password using Argon2id.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	return encodeArgon2Hash(hash, salt, h.params.Time, h.params.Memory, h.params.Threads), nil
}

// Verify verifies a password against an encoded Argon2id hash. The parameters
// embedded in the hash win over the hasher's own, so old hashes keep working
// after a cost change.
func (h *Argon2Hasher) Verify(password, encodedHash string) bool {
	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}
