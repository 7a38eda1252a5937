package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash is a 32-byte content hash, used to address proposal metadata blobs
// and upgrade code blobs by content.
type Hash [32]byte

// ZeroHash is the hash value meaning "not set".
var ZeroHash = Hash{}

// HashFromBytes hashes b with sha256 and returns the content hash.
func HashFromBytes(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// HashFromHex decodes a hex-encoded hash. It fails if the decoded length is
// not 32 bytes.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("hash: invalid hex: %w", err)
	}
	if len(b) != 32 {
		return Hash{}, fmt.Errorf("hash: expected 32 bytes, got %d", len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	decoded, err := HashFromHex(s)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}
