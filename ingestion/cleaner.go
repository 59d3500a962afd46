package ingestion

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PDF extraction leaves ligatures, smart quotes and stray control bytes in
// the text; embedding quality suffers unless they are scrubbed first.

var encodingReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	" ", " ",
	"​", "",
)

var (
	headerFooterRe = regexp.MustCompile(`(?i)^\s*(page\s+\d+\s*(of\s+\d+)?|\d+|-\s*\d+\s*-|©.*|confidential)\s*$`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	multiSpaceRe   = regexp.MustCompile(`[ \t]+`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
	emailRe        = regexp.MustCompile(`\S+@\S+\.\S+`)
	manyDotsRe     = regexp.MustCompile(`[.]{4,}`)
	manyDashesRe   = regexp.MustCompile(`[-]{4,}`)
)

// CleanText normalizes raw extracted text: unicode normalization, encoding
// artifact fixes, header/footer removal and whitespace normalization.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = encodingReplacer.Replace(text)
	text = removeHeadersFooters(text)
	text = normalizeWhitespace(text)
	text = controlCharsRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

// CleanForEmbedding strips elements that carry no semantic weight (URLs,
// email addresses, filler punctuation) before chunking and embedding.
func CleanForEmbedding(text string) string {
	text = urlRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")
	text = manyDotsRe.ReplaceAllString(text, "...")
	text = manyDashesRe.ReplaceAllString(text, "---")
	text = normalizeWhitespace(text)

	return strings.TrimSpace(text)
}

func removeHeadersFooters(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if headerFooterRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func normalizeWhitespace(text string) string {
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
