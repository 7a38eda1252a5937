package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bockgov/governor/types"
	shell "github.com/ipfs/go-ipfs-api"
)

// ContentStore addresses blobs by spec.md's 32-byte content hash rather
// than by an IPFS CID: proposal descriptions and UpgradeSelf/UpgradeRemote
// code blobs are large, off-chain payloads the governance core references
// only by hash (see SPEC_FULL.md's content-addressed storage section).
// Grounded on the teacher's dao.IPFSClient (dao/ipfs.go), generalized from
// ProposalMetadata-specific upload/retrieve methods to a plain
// hash-addressed blob store, and from the teacher's own hash-as-lookup-key
// scheme (ipfsHashToTypesHash/typesHashToIPFSHash) to a persisted mapping
// so the real IPFS CID survives a restart.
type ContentStore struct {
	shell   *shell.Shell
	index   Store // maps hex(hash) -> IPFS CID bytes, persisted separately from content
	timeout time.Duration
}

// NewContentStore dials the IPFS HTTP API at nodeURL (e.g. "localhost:5001")
// and keeps the hash->CID index in kv.
func NewContentStore(nodeURL string, kv Store) *ContentStore {
	if nodeURL == "" {
		nodeURL = "localhost:5001"
	}
	return &ContentStore{
		shell:   shell.NewShell(nodeURL),
		index:   kv,
		timeout: 30 * time.Second,
	}
}

// Put uploads data to IPFS and returns its spec.md content hash. The
// mapping from that hash to the resulting CID is recorded in the index so
// Get can find it again; the hash itself, not the CID, is what proposals
// and upgrade instructions carry in governance state.
func (c *ContentStore) Put(data []byte) (types.Hash, error) {
	hash := types.HashFromBytes(data)
	cid, err := c.shell.Add(bytes.NewReader(data))
	if err != nil {
		return types.Hash{}, fmt.Errorf("content store: upload to ipfs: %w", err)
	}
	c.index.Set(indexKey(hash), []byte(cid))
	return hash, nil
}

// Get retrieves the blob addressed by hash and verifies it still hashes to
// the same value, guarding against a compromised or misconfigured IPFS
// gateway returning substituted content.
func (c *ContentStore) Get(hash types.Hash) ([]byte, error) {
	cidBytes, ok := c.index.Get(indexKey(hash))
	if !ok {
		return nil, fmt.Errorf("content store: no known CID for hash %s", hash)
	}
	reader, err := c.shell.Cat(string(cidBytes))
	if err != nil {
		return nil, fmt.Errorf("content store: retrieve from ipfs: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("content store: read ipfs data: %w", err)
	}
	if types.HashFromBytes(data) != hash {
		return nil, fmt.Errorf("content store: content hash mismatch for %s", hash)
	}
	return data, nil
}

// Pin prevents the blob addressed by hash from being garbage collected by
// the IPFS node. Nothing in this module pins blobs automatically.
func (c *ContentStore) Pin(hash types.Hash) error {
	cidBytes, ok := c.index.Get(indexKey(hash))
	if !ok {
		return fmt.Errorf("content store: no known CID for hash %s", hash)
	}
	return c.shell.Pin(string(cidBytes))
}

// Unpin allows the blob addressed by hash to be garbage collected.
// Nothing in this module unpins blobs automatically.
func (c *ContentStore) Unpin(hash types.Hash) error {
	cidBytes, ok := c.index.Get(indexKey(hash))
	if !ok {
		return fmt.Errorf("content store: no known CID for hash %s", hash)
	}
	return c.shell.Unpin(string(cidBytes))
}

// Exists reports whether the blob addressed by hash is known to this
// store and still resolvable on the connected IPFS node.
func (c *ContentStore) Exists(hash types.Hash) (bool, error) {
	cidBytes, ok := c.index.Get(indexKey(hash))
	if !ok {
		return false, nil
	}
	_, err := c.shell.ObjectStat(string(cidBytes))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("content store: verify existence: %w", err)
	}
	return true, nil
}

func indexKey(hash types.Hash) string {
	return "ipfs-cid:" + hex.EncodeToString(hash[:])
}
