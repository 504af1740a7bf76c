package rainbow

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// ErrUnknownAlgorithm is returned for an unsupported digest name
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

var algorithms = map[string]func() hash.Hash{
	"md5":         md5.New,
	"sha1":        sha1.New,
	"sha256":      sha256.New,
	"sha512":      sha512.New,
	"sha3-256":    sha3.New256,
	"blake2b-256": newBlake2b256,
}

func newBlake2b256() hash.Hash {
	// Only fails for an oversized key
	h, _ := blake2b.New256(nil)
	return h
}

// Algorithms lists the supported digest names
func Algorithms() []string {
	return []string{"md5", "sha1", "sha256", "sha512", "sha3-256", "blake2b-256"}
}

// Digest returns the lowercase hex digest of password under algorithm
func Digest(algorithm, password string) (string, error) {
	newHash, ok := algorithms[algorithm]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
	}
	h := newHash()
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil)), nil
}
