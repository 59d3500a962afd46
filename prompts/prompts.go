package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/SaiNageswarS/go-collection-boot/ds"
	"github.com/SaiNageswarS/go-collection-boot/linq"

	"github.com/croptap/rag-core/llm"
	"github.com/croptap/rag-core/retrieval"
)

//go:embed templates/*
var templatesFS embed.FS

// DefaultMaxContextChars is the character budget for packed context.
const DefaultMaxContextChars = 4000

// truncation floor: an overflowing block is appended truncated only if at
// least this many characters of it survive; otherwise it is dropped.
const minTruncatedChars = 100

const contextDelimiter = "\n\n---\n\n"

func loadPrompt(templatePath string, data any) (string, error) {
	tmpl, err := template.ParseFS(templatesFS, templatePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SystemPrompt returns the fixed system instruction establishing the
// assistant's domain, grounding rules and tone.
func SystemPrompt() (string, error) {
	return loadPrompt("templates/system.md", nil)
}

// FormatContext packs retrieved documents into a single context string
// under a character budget. Blocks are taken in input order (already
// ranked); the first overflowing block is appended truncated with an
// ellipsis if enough of it fits, otherwise dropped, and packing stops
// either way. Greedy single-pass: deterministic and cheap, not globally
// optimal.
func FormatContext(documents []retrieval.Result, maxChars int) string {
	if len(documents) == 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}

	var parts []string
	currentLength := 0

	for _, doc := range documents {
		source := doc.Filename
		if source == "" {
			source = "Unknown source"
		}
		entry := fmt.Sprintf("[Source: %s]\n%s", source, doc.Content)

		if currentLength+len(entry) > maxChars {
			remaining := maxChars - currentLength - 50
			if remaining > minTruncatedChars {
				parts = append(parts, cutAtRune(entry, remaining)+"...")
			}
			break
		}

		parts = append(parts, entry)
		currentLength += len(entry) + 2
	}

	return strings.Join(parts, contextDelimiter)
}

// FormatSources renders a deduplicated bullet list of citations, keyed by
// (filename, category) in first-seen order.
func FormatSources(documents []retrieval.Result) string {
	if len(documents) == 0 {
		return "No sources found."
	}

	seen := ds.NewSet[string]()
	var sources []string

	for _, doc := range documents {
		key := doc.Filename + "|" + doc.Category
		if seen.Contains(key) {
			continue
		}
		seen.Add(key)
		sources = append(sources, fmt.Sprintf("- %s (%s)", doc.Filename, doc.Category))
	}

	return strings.Join(sources, "\n")
}

// BuildMessages assembles the message sequence for a RAG completion. The
// template is chosen purely on context shape: no context at all, context
// from a single file, or context spanning multiple files.
func BuildMessages(question string, contextDocs []retrieval.Result, includeSources bool) ([]llm.Message, error) {
	systemPrompt, err := SystemPrompt()
	if err != nil {
		return nil, err
	}

	var userContent string
	switch {
	case len(contextDocs) == 0:
		userContent, err = loadPrompt("templates/no_context_user.md", map[string]string{
			"Question": question,
		})

	case includeSources && distinctFilenames(contextDocs) > 1:
		userContent, err = loadPrompt("templates/multi_source_user.md", map[string]string{
			"Sources":  FormatSources(contextDocs),
			"Context":  FormatContext(contextDocs, DefaultMaxContextChars),
			"Question": question,
		})

	default:
		userContent, err = loadPrompt("templates/rag_user.md", map[string]string{
			"Context":  FormatContext(contextDocs, DefaultMaxContextChars),
			"Question": question,
		})
	}
	if err != nil {
		return nil, err
	}

	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userContent},
	}, nil
}

// cutAtRune truncates s to at most n bytes, backing up so a multi-byte
// rune is never split.
func cutAtRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func distinctFilenames(docs []retrieval.Result) int {
	names := linq.Map(docs, func(d retrieval.Result) string { return d.Filename })
	return len(linq.Distinct(names, func(n string) string { return n }))
}
