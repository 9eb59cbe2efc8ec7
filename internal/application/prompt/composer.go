package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/meetscribe/backend/internal/domain/meeting"
	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/llm"
)

const (
	// maxRecentTurns 聊天上下文保留的最近对话轮数
	maxRecentTurns = 6
	// promptReserveTokens 为提示词骨架预留的 Token
	promptReserveTokens = 300
	// truncationMarker 插入在被截断转写中部的标记
	truncationMarker = "\n\n[...]\n\n"
)

// RenderedPrompt 组装完成的提示词
type RenderedPrompt struct {
	System string
	User   string
}

// Messages 转换为 LLM 消息序列
func (p RenderedPrompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}

// ChatInput 聊天提示词的组装输入
type ChatInput struct {
	Language     string
	MeetingTitle string
	Transcript   string
	Summary      string
	History      []meeting.ChatMessage
	Question     string
}

// Composer 提示词组装器
// 纯组装：同样的输入总是产出同样的提示词。上下文预算内的优先级为
// 系统指令 > 最近 N 轮对话 > 转写摘录；转写超预算时从中部截断，
// 保留会议的开场与收尾
type Composer struct {
	store   *TemplateStore
	counter TokenCounter
	budget  int
}

// NewComposer 创建组装器
func NewComposer(cfg *config.LLMConfig, store *TemplateStore) *Composer {
	return &Composer{
		store:   store,
		counter: NewTokenCounter(),
		budget:  cfg.ContextBudget,
	}
}

// ComposeChat 组装一次聊天问答的提示词
// 会议尚无转写内容时返回 ErrNoTranscript
func (c *Composer) ComposeChat(in ChatInput) (RenderedPrompt, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return RenderedPrompt{}, meeting.ErrNoTranscript
	}

	system := c.chatSystem(in.Language)

	history := recentTurns(in.History, maxRecentTurns)

	// 预算：系统指令与问题先扣除，再扣历史，剩余给转写
	remaining := c.budget - c.counter.CountTokens(system) -
		c.counter.CountTokens(in.Question) - promptReserveTokens
	for _, msg := range history {
		remaining -= c.counter.CountTokens(msg.Content)
	}

	excerpt := c.TruncateMiddle(in.Transcript, remaining)

	var b strings.Builder
	fmt.Fprintf(&b, "# Meeting Title\n%s\n\n", in.MeetingTitle)

	b.WriteString("# Transcript\n")
	b.WriteString(excerpt)
	b.WriteString("\n\n")

	if in.Summary != "" {
		b.WriteString("# Summary\n")
		b.WriteString(in.Summary)
		b.WriteString("\n\n")
	}

	if len(history) > 0 {
		b.WriteString("# Previous Conversation\n")
		for _, msg := range history {
			label := "Assistant"
			if msg.Role == meeting.RoleUser {
				label = "User"
			}
			fmt.Fprintf(&b, "%s: %s\n\n", label, msg.Content)
		}
	}

	fmt.Fprintf(&b, "# Current Question\n%s", in.Question)

	return RenderedPrompt{System: system, User: b.String()}, nil
}

// ComposeSummary 组装摘要生成的提示词
func (c *Composer) ComposeSummary(language, content, customPrompt string) (RenderedPrompt, error) {
	if strings.TrimSpace(content) == "" {
		return RenderedPrompt{}, meeting.ErrNoTranscript
	}

	system := c.store.Lookup(KindSummarySystem, language)

	var b strings.Builder
	b.WriteString("<transcript_chunks>\n")
	b.WriteString(content)
	b.WriteString("\n</transcript_chunks>")

	if customPrompt != "" {
		b.WriteString("\n\nUser Provided Context:\n\n<user_context>\n")
		b.WriteString(customPrompt)
		b.WriteString("\n</user_context>")
	}

	return RenderedPrompt{System: system, User: b.String()}, nil
}

// ComposeChunk 组装分块摘要的提示词（多级摘要第一层）
func (c *Composer) ComposeChunk(language, chunk string) RenderedPrompt {
	return RenderedPrompt{
		System: c.store.Lookup(KindChunkSystem, language),
		User:   strings.Replace(c.store.Lookup(KindChunkUser, language), "{content}", chunk, 1),
	}
}

// ComposeCombine 组装合并分块摘要的提示词（多级摘要第二层）
func (c *Composer) ComposeCombine(language, joined string) RenderedPrompt {
	return RenderedPrompt{
		System: c.store.Lookup(KindCombineSystem, language),
		User:   strings.Replace(c.store.Lookup(KindCombineUser, language), "{content}", joined, 1),
	}
}

// TruncateMiddle 将文本压进 Token 预算
// 超预算时保留开头与结尾、截去中部：会议的议程设定和收尾决议信息
// 密度最高。截断点回退到空白，不截断单词
func (c *Composer) TruncateMiddle(text string, budgetTokens int) string {
	if budgetTokens <= 0 {
		return ""
	}
	if c.counter.CountTokens(text) <= budgetTokens {
		return text
	}

	chars := []rune(text)
	budgetChars := budgetTokens * 4
	if budgetChars >= len(chars) {
		budgetChars = len(chars) - 1
	}

	headLen := budgetChars / 2
	tailLen := budgetChars - headLen

	headEnd := headLen
	for headEnd > 0 && !isSpace(chars[headEnd-1]) {
		headEnd--
	}
	if headEnd == 0 {
		headEnd = headLen
	}

	tailStart := len(chars) - tailLen
	for tailStart < len(chars) && !isSpace(chars[tailStart]) {
		tailStart++
	}
	if tailStart >= len(chars) {
		tailStart = len(chars) - tailLen
	}

	return strings.TrimSpace(string(chars[:headEnd])) +
		truncationMarker +
		strings.TrimSpace(string(chars[tailStart:]))
}

// chatSystem 带当天日期的聊天系统提示词
func (c *Composer) chatSystem(language string) string {
	tmpl := c.store.Lookup(KindChatSystem, language)
	return strings.Replace(tmpl, "{date}", time.Now().UTC().Format("2006-01-02"), 1)
}

// recentTurns 取最近 n 轮对话（每轮最多两条消息）
func recentTurns(history []meeting.ChatMessage, n int) []meeting.ChatMessage {
	limit := n * 2
	if len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
