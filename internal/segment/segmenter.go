// Package segment turns an article's structured body into the ordered
// sequence of text segments the embedding pipeline operates on.
package segment

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/resolve-studio/semgraph/internal/domain"
)

// Markdown syntax stripped before segmentation. Inline code and fenced
// blocks are removed entirely; links keep their label text.
var (
	reCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`[^`]+`")
	reImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reHeader     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBold       = regexp.MustCompile(`\*{1,2}([^*]+)\*{1,2}`)
	reItalic     = regexp.MustCompile(`_{1,2}([^_]+)_{1,2}`)
	reQuote      = regexp.MustCompile(`(?m)^>\s+`)
	reBullet     = regexp.MustCompile(`(?m)^[\-\*\+]\s+`)
	reNumbered   = regexp.MustCompile(`(?m)^\d+\.\s+`)
	reSpace      = regexp.MustCompile(`\s+`)
)

// Segmenter splits article bodies at sentence granularity and merges
// fragments below a minimum length into their neighbor.
type Segmenter struct {
	minChars int
}

// New creates a Segmenter. minChars below 1 disables merging.
func New(minChars int) *Segmenter {
	return &Segmenter{minChars: minChars}
}

// Segment produces the ordered segment sequence for a body. Pure; an
// article with zero eligible segments yields an empty slice, not an error.
func (s *Segmenter) Segment(body []domain.Block) []domain.Segment {
	var fragments []string
	for _, block := range body {
		if block.Type == domain.BlockCode {
			continue
		}
		text := StripMarkdown(block.Text)
		if text == "" {
			continue
		}
		fragments = append(fragments, splitSentences(text)...)
	}

	texts := s.mergeShort(fragments)
	if len(texts) == 0 {
		return nil
	}

	segments := make([]domain.Segment, len(texts))
	seen := make(map[string]int, len(texts))
	for i, text := range texts {
		occurrence := seen[text]
		seen[text] = occurrence + 1

		segments[i] = domain.Segment{
			ID:       domain.SegmentID(text, occurrence),
			Text:     text,
			Position: position(i, len(texts)),
		}
	}
	return segments
}

// StripMarkdown removes markdown syntax, keeping readable text only.
func StripMarkdown(text string) string {
	text = reCodeBlock.ReplaceAllString(text, "")
	text = reImage.ReplaceAllString(text, "")
	text = reLink.ReplaceAllString(text, "$1")
	text = reInlineCode.ReplaceAllString(text, "")
	text = reHeader.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reQuote.ReplaceAllString(text, "")
	text = reBullet.ReplaceAllString(text, "")
	text = reNumbered.ReplaceAllString(text, "")
	return strings.TrimSpace(reSpace.ReplaceAllString(text, " "))
}

// splitSentences breaks text at terminal punctuation followed by whitespace
// and an upper-case or digit start. Deliberately simple; segment quality
// depends far more on the merge threshold than on tokenizer finesse.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// Consume trailing punctuation and closing quotes/parens.
		end := i + 1
		for end < len(runes) && (isTerminal(runes[end]) || runes[end] == '"' || runes[end] == '\'' || runes[end] == ')') {
			end++
		}
		if end >= len(runes) {
			break
		}
		if !unicode.IsSpace(runes[end]) {
			continue
		}
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next < len(runes) && !unicode.IsUpper(runes[next]) && !unicode.IsDigit(runes[next]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = next
		i = next - 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// mergeShort folds fragments shorter than minChars into the preceding
// segment; a short leading fragment merges forward instead. Short fragments
// are merged rather than dropped so no article text disappears from the
// visualization.
func (s *Segmenter) mergeShort(fragments []string) []string {
	if s.minChars <= 1 {
		return fragments
	}

	var out []string
	for _, frag := range fragments {
		if len(out) > 0 && len([]rune(out[len(out)-1])) < s.minChars {
			out[len(out)-1] = out[len(out)-1] + " " + frag
			continue
		}
		out = append(out, frag)
	}

	// Trailing short fragment merges backward.
	if n := len(out); n > 1 && len([]rune(out[n-1])) < s.minChars {
		out[n-2] = out[n-2] + " " + out[n-1]
		out = out[:n-1]
	}
	return out
}

func position(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}
