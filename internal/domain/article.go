package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"
)

// KeyPrefix namespaces all persistent keys written by semgraph.
const KeyPrefix = "semgraph:"

// BlockType identifies the kind of a rich content block.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockQuote     BlockType = "quote"
	BlockList      BlockType = "list"
	BlockCode      BlockType = "code"
)

// Block is one unit of an article's structured body. Text may contain
// markdown inline syntax; the segmenter strips it.
type Block struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
}

// Article is the unit of content the pipeline operates on. Version is the
// content fingerprint of Body and changes iff Body changes.
type Article struct {
	ID        string
	Version   string
	Body      []Block
	UpdatedAt time.Time
}

// Fingerprint computes the content version for a body: the hex sha256 of its
// canonical JSON serialization. Deterministic across processes.
func Fingerprint(body []Block) string {
	data, err := json.Marshal(body)
	if err != nil {
		// []Block marshaling cannot fail; keep the signature simple.
		data = []byte{}
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SeedFromVersion derives the deterministic RNG seed for projection from a
// content version. Non-hex versions still produce a stable seed.
func SeedFromVersion(version string) int64 {
	if raw, err := hex.DecodeString(version); err == nil && len(raw) >= 8 {
		return int64(binary.BigEndian.Uint64(raw[:8]))
	}
	h := sha256.Sum256([]byte(version))
	return int64(binary.BigEndian.Uint64(h[:8]))
}
