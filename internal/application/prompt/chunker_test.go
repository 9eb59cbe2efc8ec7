package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := ChunkText("a short transcript", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short transcript", chunks[0])
}

func TestChunkText_EmptyInput(t *testing.T) {
	assert.Nil(t, ChunkText("", 100, 10))
	assert.Nil(t, ChunkText("text", 0, 10))
}

func TestChunkText_OverlapAndWordBoundaries(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = "palavra"
	}
	text := strings.Join(words, " ")

	chunks := ChunkText(text, 50, 10)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		// 不超过预算（4 字符 ≈ 1 Token）
		assert.LessOrEqual(t, len([]rune(chunk)), 50*4, "chunk %d exceeds budget", i)
		// 不截断单词
		assert.False(t, strings.HasPrefix(strings.TrimSpace(chunk), "lavra"),
			"chunk %d starts mid-word", i)
	}

	// 完整覆盖：末块以原文结尾收尾
	assert.True(t, strings.HasSuffix(text, strings.TrimSpace(chunks[len(chunks)-1])))
}

func TestRoughTokenCount(t *testing.T) {
	assert.Equal(t, 0, RoughTokenCount(""))
	assert.Equal(t, 1, RoughTokenCount("abc"))
	assert.Equal(t, 1, RoughTokenCount("abcd"))
	assert.Equal(t, 2, RoughTokenCount("abcde"))
}

func TestCleanLLMMarkdown_StripsThinkingBlocks(t *testing.T) {
	input := "<thinking>let me reason about this</thinking>\n\n# Planning Meeting\n\n- item"
	assert.Equal(t, "# Planning Meeting\n\n- item", CleanLLMMarkdown(input))

	input = "<think>short form</think># Title"
	assert.Equal(t, "# Title", CleanLLMMarkdown(input))
}

func TestCleanLLMMarkdown_UnwrapsCodeFences(t *testing.T) {
	input := "```markdown\n# Planning Meeting\n\n- item\n```"
	assert.Equal(t, "# Planning Meeting\n\n- item", CleanLLMMarkdown(input))

	input = "```\n# Bare fence\n```"
	assert.Equal(t, "# Bare fence", CleanLLMMarkdown(input))
}

func TestCleanLLMMarkdown_PassThrough(t *testing.T) {
	input := "  # Already clean\n\ncontent  "
	assert.Equal(t, "# Already clean\n\ncontent", CleanLLMMarkdown(input))
}

func TestExtractTitleFromMarkdown(t *testing.T) {
	assert.Equal(t, "Planning Meeting",
		ExtractTitleFromMarkdown("intro\n# Planning Meeting\nbody"))
	assert.Equal(t, "", ExtractTitleFromMarkdown("no heading here"))
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, LanguageEnUS, NormalizeLanguage("en"))
	assert.Equal(t, LanguageEnUS, NormalizeLanguage("en-US"))
	assert.Equal(t, LanguageEnUS, NormalizeLanguage("EN-GB"))
	assert.Equal(t, LanguagePtBR, NormalizeLanguage("pt"))
	assert.Equal(t, LanguagePtBR, NormalizeLanguage("pt-BR"))
	assert.Equal(t, DefaultLanguage, NormalizeLanguage("fr-FR"))
	assert.Equal(t, DefaultLanguage, NormalizeLanguage(""))
}
