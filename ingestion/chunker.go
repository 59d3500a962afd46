package ingestion

import (
	"strings"
)

// Document is one cleaned source document, as produced by a Loader.
type Document struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category"`
	Filename string `json:"filename"`
}

// Chunk is a bounded window of a document's text with provenance metadata.
// ChunkIndex and TotalChunks agree across all chunks of the same document.
type Chunk struct {
	Text        string `json:"text"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	Filename    string `json:"filename"`
}

// chunkSeparators is the splitting hierarchy, largest first: paragraph
// breaks, line breaks, sentence boundaries, spaces, raw characters.
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// ChunkText splits text into overlapping windows of at most chunkSize
// characters, preferring the largest separator that keeps each piece under
// the limit. Adjacent chunks overlap by chunkOverlap characters to
// preserve context across boundaries. Empty or whitespace-only input
// yields no chunks.
func ChunkText(text string, chunkSize, chunkOverlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}

	raw := splitRecursive(text, chunkSize, chunkOverlap, chunkSeparators)

	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func splitRecursive(text string, size, overlap int, separators []string) []string {
	if len(text) <= size {
		return []string{text}
	}

	// Pick the largest separator present in the text.
	sep := ""
	var remaining []string
	for i, s := range separators {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			remaining = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return hardSplit(text, size, overlap)
	}

	// SplitAfter keeps the separator attached, so merged chunks
	// reconstruct the original text exactly.
	parts := strings.SplitAfter(text, sep)

	var out []string
	var pending []string
	flush := func() {
		if len(pending) > 0 {
			out = append(out, mergeSplits(pending, size, overlap)...)
			pending = nil
		}
	}

	for _, part := range parts {
		if len(part) <= size {
			pending = append(pending, part)
			continue
		}
		// Oversized piece: descend to smaller separators.
		flush()
		out = append(out, splitRecursive(part, size, overlap, remaining)...)
	}
	flush()
	return out
}

// mergeSplits greedily packs small pieces into chunks up to size, carrying
// a tail of at most overlap characters into the next chunk.
func mergeSplits(parts []string, size, overlap int) []string {
	var chunks []string
	var current []string
	currentLen := 0

	for _, part := range parts {
		if currentLen+len(part) > size && currentLen > 0 {
			chunks = append(chunks, strings.Join(current, ""))

			// Drop leading pieces until the retained tail fits both the
			// overlap budget and the next chunk.
			for currentLen > overlap || (currentLen+len(part) > size && currentLen > 0) {
				currentLen -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, part)
		currentLen += len(part)
	}

	if currentLen > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}

// hardSplit cuts character windows with a fixed overlap stride, used when
// no separator survives.
func hardSplit(text string, size, overlap int) []string {
	step := size - overlap
	var out []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		out = append(out, text[start:end])
	}
	return out
}

// ChunkWithMetadata splits a document and stamps every chunk with its
// position and the document's provenance. A document without text yields
// no chunks.
func ChunkWithMetadata(doc Document, chunkSize, chunkOverlap int) []Chunk {
	texts := ChunkText(doc.Text, chunkSize, chunkOverlap)
	if len(texts) == 0 {
		return nil
	}

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{
			Text:        t,
			ChunkIndex:  i,
			TotalChunks: len(texts),
			Source:      doc.Source,
			Category:    doc.Category,
			Filename:    doc.Filename,
		}
	}
	return chunks
}

// EstimateChunkCount is a closed-form pre-flight estimate. The real
// chunker is authoritative; separator alignment can produce fewer chunks.
func EstimateChunkCount(text string, chunkSize, chunkOverlap int) int {
	if len(text) <= chunkSize {
		return 1
	}
	effective := chunkSize - chunkOverlap
	if effective <= 0 {
		return 1
	}
	n := (len(text) - chunkOverlap + effective - 1) / effective
	if n < 1 {
		n = 1
	}
	return n
}
