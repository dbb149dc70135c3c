package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Segment is one contiguous unit of article text treated as a single
// embedding input. Position is the segment's normalized order within the
// article: first segment 0, last segment 1, a lone segment 0.
type Segment struct {
	ID       string
	Text     string
	Position float64
}

// SegmentID derives a stable id from segment text. occurrence disambiguates
// repeated identical texts within one article. Unchanged text keeps its id
// across recomputation, which is what lets the embedding cache reuse vectors.
func SegmentID(text string, occurrence int) string {
	h := sha256.Sum256([]byte(text))
	id := "s" + hex.EncodeToString(h[:])[:10]
	if occurrence > 0 {
		return fmt.Sprintf("%s-%d", id, occurrence+1)
	}
	return id
}
