package generation

import (
	"strings"

	"github.com/meetscribe/backend/internal/domain/meeting"
)

// 总结模板要求的四个固定英文章节标题
// 两种语言的模板都产出同样的标题，解析因此与生成语言无关
const (
	headingKeyPoints   = "key points"
	headingActionItems = "action items"
	headingDecisions   = "decisions"
	headingMainTopics  = "main topics"
)

// emptySectionMarkers 模板规定的"本节为空"占位条目
var emptySectionMarkers = map[string]bool{
	"none":    true,
	"nenhum":  true,
	"nenhuma": true,
}

// ParseSections 从模型输出中解析四个总结章节
// 四个章节标题齐全时返回结构化结果；缺失任何标题视为解析失败，
// 调用方应回退到原始文本
func ParseSections(markdown string) (meeting.SummarySections, bool) {
	var sections meeting.SummarySections
	found := map[string]bool{}

	current := ""
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)

		if heading, ok := parseHeading(trimmed); ok {
			current = heading
			if current != "" {
				found[current] = true
			}
			continue
		}

		item, ok := parseListItem(trimmed)
		if !ok || current == "" {
			continue
		}
		switch current {
		case headingKeyPoints:
			sections.KeyPoints = append(sections.KeyPoints, item)
		case headingActionItems:
			sections.ActionItems = append(sections.ActionItems, item)
		case headingDecisions:
			sections.Decisions = append(sections.Decisions, item)
		case headingMainTopics:
			sections.MainTopics = append(sections.MainTopics, item)
		}
	}

	structured := found[headingKeyPoints] && found[headingActionItems] &&
		found[headingDecisions] && found[headingMainTopics]
	if structured {
		// 齐全但为空的章节规范化为空切片，与缺失章节（nil）区分
		if sections.KeyPoints == nil {
			sections.KeyPoints = []string{}
		}
		if sections.ActionItems == nil {
			sections.ActionItems = []string{}
		}
		if sections.Decisions == nil {
			sections.Decisions = []string{}
		}
		if sections.MainTopics == nil {
			sections.MainTopics = []string{}
		}
	}
	return sections, structured
}

// parseHeading 识别 "## Key Points" 形式的章节标题
// 返回规范化（小写）的标题名；非四个已知章节返回空串
func parseHeading(line string) (string, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	name := strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "#")))
	switch name {
	case headingKeyPoints, headingActionItems, headingDecisions, headingMainTopics:
		return name, true
	}
	// 未知标题也要中断当前章节的条目收集
	return "", true
}

// parseListItem 识别 "- item" / "* item" 形式的列表条目
func parseListItem(line string) (string, bool) {
	var item string
	switch {
	case strings.HasPrefix(line, "- "):
		item = strings.TrimSpace(line[2:])
	case strings.HasPrefix(line, "* "):
		item = strings.TrimSpace(line[2:])
	default:
		return "", false
	}
	if item == "" || emptySectionMarkers[strings.ToLower(item)] {
		return "", false
	}
	return item, true
}
