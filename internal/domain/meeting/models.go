package meeting

import "time"

// Meeting 会议实体
// 会议本身由外部创建，pipeline 只负责其转录、总结与问答产物
type Meeting struct {
	ID        string    // 唯一标识（UUID）
	Title     string    // 会议标题
	CreatedAt time.Time // 创建时间
}

// TranscriptFragment 转录片段
// 录音会话期间按顺序追加，会话结束后不可变
type TranscriptFragment struct {
	MeetingID  string   // 所属会议 ID
	Seq        int64    // 片段序号（会话内单调递增）
	StartMs    int64    // 起始偏移（毫秒）
	EndMs      int64    // 结束偏移（毫秒）
	Text       string   // 识别文本
	Confidence *float64 // 置信度（可选）
	Language   string   // 语言标签，如 "en-US"、"pt-BR"
}

// Transcript 完整转录
// 片段按 Seq 排序拼接而成
type Transcript struct {
	MeetingID string
	Fragments []TranscriptFragment
	Sealed    bool // 录音会话结束后为 true，之后不再追加
}

// PlainText 拼接所有片段文本
func (t *Transcript) PlainText() string {
	if len(t.Fragments) == 0 {
		return ""
	}
	text := t.Fragments[0].Text
	for _, f := range t.Fragments[1:] {
		text += "\n" + f.Text
	}
	return text
}

// IsEmpty 是否没有任何片段
func (t *Transcript) IsEmpty() bool {
	return len(t.Fragments) == 0
}

// Summary 会议总结
// 每个会议最多一份，重新生成时整体替换
type Summary struct {
	MeetingID   string          // 所属会议 ID
	Sections    SummarySections // 四个必需章节
	RawMarkdown string          // 原始 Markdown 渲染（结构化解析失败时的兜底）
	Structured  bool            // Sections 是否来自结构化解析
	Model       string          // 生成所用模型
	Language    string          // 生成语言
	GeneratedAt time.Time       // 生成时间
}

// SummarySections 总结的四个必需章节
type SummarySections struct {
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	Decisions   []string `json:"decisions"`
	MainTopics  []string `json:"main_topics"`
}

// IsComplete 四个章节是否都已填充
func (s *SummarySections) IsComplete() bool {
	return s.KeyPoints != nil && s.ActionItems != nil &&
		s.Decisions != nil && s.MainTopics != nil
}

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 会议问答消息
// 同一会议下按 CreatedAt 全序排列；成功的一轮对话由一条 user
// 消息与紧随其后的一条 assistant 消息构成
type ChatMessage struct {
	ID        string    // 唯一标识（UUID）
	MeetingID string    // 所属会议 ID
	Role      string    // user | assistant
	Content   string    // 消息内容
	CreatedAt time.Time // 创建时间
	Metadata  string    // 附加元数据（JSON，可选，如 token 用量）
}

// ChatTurn 一轮完整对话
type ChatTurn struct {
	Answer           string       `json:"answer"`
	UserMessage      *ChatMessage `json:"user_message"`
	AssistantMessage *ChatMessage `json:"assistant_message"`
}
