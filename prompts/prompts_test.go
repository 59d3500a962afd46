package prompts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croptap/rag-core/retrieval"
)

func result(content, filename, category string) retrieval.Result {
	return retrieval.Result{Content: content, Filename: filename, Category: category}
}

func TestSystemPrompt(t *testing.T) {
	p, err := SystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, p, "CropTAP Assistant")
	assert.Contains(t, p, "provided context")
}

func TestFormatContextEmpty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil, 4000))
}

func TestFormatContextBlocks(t *testing.T) {
	docs := []retrieval.Result{
		result("Rice grows in paddies.", "rice.txt", "crop_production_guide"),
		result("Maize needs full sun.", "maize.txt", "crop_production_guide"),
	}

	out := FormatContext(docs, 4000)
	assert.Contains(t, out, "[Source: rice.txt]\nRice grows in paddies.")
	assert.Contains(t, out, "[Source: maize.txt]\nMaize needs full sun.")
	assert.Contains(t, out, "\n\n---\n\n")

	// Order follows ranking order.
	assert.Less(t, strings.Index(out, "rice.txt"), strings.Index(out, "maize.txt"))
}

func TestFormatContextUnknownSource(t *testing.T) {
	out := FormatContext([]retrieval.Result{result("text", "", "")}, 4000)
	assert.Contains(t, out, "[Source: Unknown source]")
}

func TestFormatContextBudget(t *testing.T) {
	docs := []retrieval.Result{
		result(strings.Repeat("a", 500), "a.txt", "soil_data"),
		result(strings.Repeat("b", 500), "b.txt", "soil_data"),
		result(strings.Repeat("c", 500), "c.txt", "soil_data"),
	}

	out := FormatContext(docs, 700)
	assert.LessOrEqual(t, len(out), 700+len("..."))
	assert.Contains(t, out, "a.txt")
	// Second block overflows; it is included truncated with an ellipsis.
	assert.Contains(t, out, "b.txt")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "c.txt")
}

func TestFormatContextDropsTinyTruncation(t *testing.T) {
	docs := []retrieval.Result{
		result(strings.Repeat("a", 500), "a.txt", "soil_data"),
		result(strings.Repeat("b", 500), "b.txt", "soil_data"),
	}

	// After the first block (~514 chars) only ~36 chars remain before the
	// safety margin, below the truncation floor, so b.txt is dropped.
	out := FormatContext(docs, 600)
	assert.Contains(t, out, "a.txt")
	assert.NotContains(t, out, "b.txt")
}

func TestFormatContextTruncationKeepsValidUTF8(t *testing.T) {
	// 2-byte runes with a cut position that lands mid-rune.
	docs := []retrieval.Result{
		result(strings.Repeat("é", 200), "notes.txt", "soil_data"),
	}

	out := FormatContext(docs, 201)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), 151+len("..."))
}

func TestFormatSources(t *testing.T) {
	docs := []retrieval.Result{
		result("x", "rice.txt", "crop_production_guide"),
		result("y", "rice.txt", "crop_production_guide"), // duplicate chunk
		result("z", "soil.txt", "soil_data"),
	}

	out := FormatSources(docs)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "- rice.txt (crop_production_guide)", lines[0])
	assert.Equal(t, "- soil.txt (soil_data)", lines[1])
}

func TestFormatSourcesEmpty(t *testing.T) {
	assert.Equal(t, "No sources found.", FormatSources(nil))
}

func TestBuildMessagesNoContext(t *testing.T) {
	msgs, err := BuildMessages("How do I grow dragon fruit?", nil, true)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "couldn't find specific information")
	assert.Contains(t, msgs[1].Content, "How do I grow dragon fruit?")
	assert.NotContains(t, msgs[1].Content, "[Source:")
}

func TestBuildMessagesSingleSource(t *testing.T) {
	docs := []retrieval.Result{
		result("Rice chunk one.", "rice.txt", "crop_production_guide"),
		result("Rice chunk two.", "rice.txt", "crop_production_guide"),
	}

	msgs, err := BuildMessages("When to plant rice?", docs, true)
	require.NoError(t, err)

	user := msgs[1].Content
	assert.Contains(t, user, "CONTEXT:")
	assert.Contains(t, user, "[Source: rice.txt]")
	assert.Contains(t, user, "When to plant rice?")
	// One distinct file means the single-source template, no SOURCES block.
	assert.NotContains(t, user, "SOURCES:")
}

func TestBuildMessagesMultiSource(t *testing.T) {
	docs := []retrieval.Result{
		result("Rice info.", "rice.txt", "crop_production_guide"),
		result("Soil info.", "soil.txt", "soil_data"),
	}

	msgs, err := BuildMessages("Best soil for rice?", docs, true)
	require.NoError(t, err)

	user := msgs[1].Content
	assert.Contains(t, user, "SOURCES:")
	assert.Contains(t, user, "- rice.txt (crop_production_guide)")
	assert.Contains(t, user, "- soil.txt (soil_data)")
	assert.Contains(t, user, "synthesize")
}

func TestBuildMessagesMultiSourceDisabled(t *testing.T) {
	docs := []retrieval.Result{
		result("Rice info.", "rice.txt", "crop_production_guide"),
		result("Soil info.", "soil.txt", "soil_data"),
	}

	msgs, err := BuildMessages("Best soil for rice?", docs, false)
	require.NoError(t, err)
	assert.NotContains(t, msgs[1].Content, "SOURCES:")
}
