package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

const (
	SaltLength  = 32
	TokenLength = 32

	// Upper bounds accepted when decoding a stored hash, so a corrupted row
	// cannot make verification allocate unbounded memory.
	maxDecodeMemoryKiB = 4 * 1024 * 1024
	maxDecodeTimeCost  = 1 << 10
)

// Error codes attached to failures returned by this package.
const (
	CodeHashing     = "HASHING_FAILED"
	CodeTokenSource = "TOKEN_SOURCE_FAILED"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// HashParams are the Argon2id cost parameters.
type HashParams struct {
	Lanes     uint8
	TimeCost  uint32
	MemoryKiB uint32
	KeyLength uint32
}

// DefaultHashParams returns lanes 8, time cost 10, 2 MiB memory and a 32-byte key.
func DefaultHashParams() HashParams {
	return HashParams{
		Lanes:     8,
		TimeCost:  10,
		MemoryKiB: 2048,
		KeyLength: 32,
	}
}

func (p HashParams) validate() error {
	switch {
	case p.Lanes == 0:
		return fmt.Errorf("lane count must be greater than zero")
	case p.TimeCost == 0:
		return fmt.Errorf("time cost must be greater than zero")
	case p.MemoryKiB < 8*uint32(p.Lanes):
		return fmt.Errorf("memory must be at least 8 KiB per lane")
	case p.KeyLength < 16:
		return fmt.Errorf("key length must be at least 16 bytes")
	}
	return nil
}

// HashPassword derives an Argon2id digest of password keyed with secret and
// returns it PHC-encoded: $argon2id$v=19$m=<kib>,t=<time>,p=<lanes>$<salt>$<hash>.
// Every call uses a fresh random salt. Errors only on misconfiguration.
func HashPassword(password string, secret []byte, params HashParams) (string, error) {
	errb := oops.Code(CodeHashing).With("operation", "hash_password")

	if len(secret) == 0 {
		return "", errb.Errorf("hash secret is empty")
	}
	if err := params.validate(); err != nil {
		return "", errb.Wrap(err)
	}

	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errb.Wrapf(err, "failed to generate salt")
	}

	key := argon2.IDKey(pepper(password, secret), salt, params.TimeCost, params.MemoryKiB, params.Lanes, params.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.MemoryKiB,
		params.TimeCost,
		params.Lanes,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// A hash that cannot be decoded is a mismatch, not an error.
func VerifyPassword(password, encoded string, secret []byte) (bool, error) {
	if len(secret) == 0 {
		return false, oops.Code(CodeHashing).With("operation", "verify_password").Errorf("hash secret is empty")
	}

	params, salt, expected, err := decodeHash(encoded)
	if err != nil {
		return false, nil
	}

	computed := argon2.IDKey(pepper(password, secret), salt, params.TimeCost, params.MemoryKiB, params.Lanes, params.KeyLength)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// decodeHash parses a PHC-encoded Argon2id hash.
func decodeHash(encoded string) (HashParams, []byte, []byte, error) {
	var params HashParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return params, nil, nil, fmt.Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, fmt.Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, err
	}
	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	var memory, timeCost, lanes uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &lanes); err != nil {
		return params, nil, nil, err
	}
	if lanes == 0 || lanes > 255 || timeCost == 0 || timeCost > maxDecodeTimeCost || memory > maxDecodeMemoryKiB {
		return params, nil, nil, fmt.Errorf("hash parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, err
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, err
	}
	if len(key) == 0 || len(key) > 1024 {
		return params, nil, nil, fmt.Errorf("invalid key length: %d", len(key))
	}

	params = HashParams{
		Lanes:     uint8(lanes),
		TimeCost:  timeCost,
		MemoryKiB: memory,
		KeyLength: uint32(len(key)),
	}
	return params, salt, key, nil
}

// pepper binds the password to the server secret before it reaches Argon2id.
func pepper(password string, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(password))
	return mac.Sum(nil)
}

// GenerateToken returns a random alphanumeric string of TokenLength
// characters. Used for reset request ids and reset tokens.
func GenerateToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, TokenLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", oops.Code(CodeTokenSource).With("operation", "generate_token").Wrap(err)
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
