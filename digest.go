package dfxml

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm names as they appear, lower-cased, in hashdigest type
// attributes.
const (
	AlgMD5        = "md5"
	AlgSHA1       = "sha1"
	AlgSHA256     = "sha256"
	AlgSHA512     = "sha512"
	AlgSHA3_256   = "sha3-256"
	AlgBLAKE2b256 = "blake2b-256"
	AlgBLAKE3     = "blake3"
)

var hashers = map[string]func() hash.Hash{
	AlgMD5:        md5.New,
	AlgSHA1:       sha1.New,
	AlgSHA256:     sha256.New,
	AlgSHA512:     sha512.New,
	AlgSHA3_256:   func() hash.Hash { return sha3.New256() },
	AlgBLAKE2b256: newBlake2b256,
	AlgBLAKE3:     func() hash.Hash { return blake3.New() },
}

func newBlake2b256() hash.Hash {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	return h
}

// Algorithms lists the digest algorithms NewHasher knows.
func Algorithms() []string {
	return []string{AlgMD5, AlgSHA1, AlgSHA256, AlgSHA512, AlgSHA3_256, AlgBLAKE2b256, AlgBLAKE3}
}

// NewHasher returns a fresh hash for alg, ignoring case.
func NewHasher(alg string) (hash.Hash, error) {
	fn, ok := hashers[strings.ToLower(alg)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, alg)
	}
	return fn(), nil
}

// ComputeDigests reads r to the end and returns the hex digest of every
// requested algorithm along with the number of bytes read.
func ComputeDigests(r io.Reader, algs ...string) (HashDigestMap, int64, error) {
	hs := make(map[string]hash.Hash, len(algs))
	ws := make([]io.Writer, 0, len(algs))
	for _, alg := range algs {
		name := strings.ToLower(alg)
		if _, dup := hs[name]; dup {
			continue
		}
		h, err := NewHasher(name)
		if err != nil {
			return nil, 0, err
		}
		hs[name] = h
		ws = append(ws, h)
	}
	n, err := io.Copy(io.MultiWriter(ws...), r)
	if err != nil {
		return nil, n, err
	}
	out := make(HashDigestMap, len(hs))
	for name, h := range hs {
		out[name] = hex.EncodeToString(h.Sum(nil))
	}
	return out, n, nil
}
