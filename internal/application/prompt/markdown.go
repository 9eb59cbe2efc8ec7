package prompt

import (
	"regexp"
	"strings"
)

// thinkingBlockRe 匹配 <think>...</think> 和 <thinking>...</thinking> 块
var thinkingBlockRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

// CleanLLMMarkdown 清理 LLM 输出的 Markdown
// 去掉推理类模型夹带的 thinking 块，再剥掉包裹整个输出的代码围栏
func CleanLLMMarkdown(markdown string) string {
	withoutThinking := thinkingBlockRe.ReplaceAllString(markdown, "")
	trimmed := strings.TrimSpace(withoutThinking)

	prefixes := []string{"```markdown\n", "```\n"}
	const suffix = "```"

	for _, prefix := range prefixes {
		if strings.HasPrefix(trimmed, prefix) && strings.HasSuffix(trimmed, suffix) {
			content := trimmed[len(prefix) : len(trimmed)-len(suffix)]
			return strings.TrimSpace(content)
		}
	}

	return trimmed
}

// ExtractTitleFromMarkdown 提取 Markdown 首个一级标题作为标题
// 没有标题时返回空串
func ExtractTitleFromMarkdown(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
