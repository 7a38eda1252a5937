// Package crypto provides the minimal keypair and signature support the
// api package needs to authenticate requests. The governance core itself
// never verifies a signature; it only ever sees an already-authenticated
// types.AccountID (see DESIGN.md).
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/bockgov/governor/types"
)

// PrivateKey wraps an ECDSA P256 private key, matching the teacher's own
// choice of stdlib ECDSA at the API layer (api/dao_server.go).
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

// PublicKey wraps an ECDSA P256 public key.
type PublicKey struct {
	key *ecdsa.PublicKey
}

// Signature is an ECDSA (r, s) pair.
type Signature struct {
	R, S *big.Int
}

// GeneratePrivateKey creates a new random keypair.
func GeneratePrivateKey() PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}
	return PrivateKey{key: key}
}

// PrivateKeyFromHex decodes a hex-encoded 32-byte scalar into a private key.
func PrivateKeyFromHex(s string) (PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("crypto: invalid private key hex: %w", err)
	}
	if len(b) != 32 {
		return PrivateKey{}, fmt.Errorf("crypto: private key must be 32 bytes, got %d", len(b))
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(b)
	x, y := curve.ScalarBaseMult(b)
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}
	return PrivateKey{key: key}, nil
}

func (p PrivateKey) PublicKey() PublicKey {
	return PublicKey{key: &p.key.PublicKey}
}

// Sign signs the digest (expected to already be hashed by the caller).
func (p PrivateKey) Sign(digest []byte) (Signature, error) {
	r, s, err := ecdsa.Sign(rand.Reader, p.key, digest)
	if err != nil {
		return Signature{}, err
	}
	return Signature{R: r, S: s}, nil
}

// PublicKeyFromHex decodes an uncompressed hex-encoded public key.
func PublicKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("crypto: invalid public key hex: %w", err)
	}
	curve := elliptic.P256()
	x, y := elliptic.Unmarshal(curve, b)
	if x == nil {
		return PublicKey{}, fmt.Errorf("crypto: invalid public key bytes")
	}
	return PublicKey{key: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}, nil
}

// Verify checks sig against digest for this public key.
func (p PublicKey) Verify(digest []byte, sig Signature) bool {
	if p.key == nil || sig.R == nil || sig.S == nil {
		return false
	}
	return ecdsa.Verify(p.key, digest, sig.R, sig.S)
}

// Bytes returns the uncompressed point encoding.
func (p PublicKey) Bytes() []byte {
	return elliptic.Marshal(p.key.Curve, p.key.X, p.key.Y)
}

func (p PublicKey) String() string {
	return hex.EncodeToString(p.Bytes())
}

// Account returns the types.AccountID this public key authenticates as:
// the opaque hex encoding of the key, matching the teacher's
// crypto.PublicKey.String()-as-account-id convention (dao/state.go).
func (p PublicKey) Account() types.AccountID {
	return types.AccountID(p.String())
}
