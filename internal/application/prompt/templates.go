package prompt

import (
	"os"
	"strings"
	"sync"

	"log/slog"

	"github.com/meetscribe/backend/internal/domain/events"
	"github.com/meetscribe/backend/internal/infrastructure/log"
)

// 支持的语言标签
const (
	LanguageEnUS = "en-US"
	LanguagePtBR = "pt-BR"
	// DefaultLanguage 未识别语言标签的确定性回退
	DefaultLanguage = LanguagePtBR
)

// 模板种类
const (
	KindChatSystem    = "chat_system"
	KindSummarySystem = "summary_system"
	KindChunkSystem   = "chunk_system"
	KindChunkUser     = "chunk_user"
	KindCombineSystem = "combine_system"
	KindCombineUser   = "combine_user"
)

// NormalizeLanguage 归一化语言标签
// 任何无法识别的标签都确定性地回退到默认语言，绝不报错
func NormalizeLanguage(tag string) string {
	switch {
	case strings.HasPrefix(strings.ToLower(tag), "en"):
		return LanguageEnUS
	case strings.HasPrefix(strings.ToLower(tag), "pt"):
		return LanguagePtBR
	default:
		return DefaultLanguage
	}
}

// TemplateKey 模板在存储中的键：kind_language
func TemplateKey(kind, language string) string {
	return kind + "_" + NormalizeLanguage(language)
}

// builtinTemplates 内置模板
// 四个摘要小节使用固定英文标题，内容遵循目标语言，解析器据此做语言无关的
// 小节提取
var builtinTemplates = map[string]string{
	KindChatSystem + "_" + LanguageEnUS: "You are an AI assistant helping users understand their meeting notes. " +
		"Today's date is {date}. You have access to the meeting transcript, summary, " +
		"and previous conversation history. Answer questions accurately based on the " +
		"context provided. If information is not in the context, say so clearly. " +
		"Be concise but comprehensive in your responses. Respond in English.",

	KindChatSystem + "_" + LanguagePtBR: "Você é um assistente de IA ajudando usuários a entender suas anotações de reunião. " +
		"A data de hoje é {date}. Você tem acesso à transcrição da reunião, ao resumo, " +
		"e ao histórico de conversas anteriores. Responda perguntas com precisão baseado no " +
		"contexto fornecido. Se a informação não estiver no contexto, deixe isso claro. " +
		"Seja conciso mas abrangente em suas respostas. Responda em português do Brasil.",

	KindSummarySystem + "_" + LanguageEnUS: `You are an expert meeting analyst. Produce a structured summary of the meeting transcript provided by the user.

Your output MUST be markdown with exactly these four second-level headings, in this order:

## Key Points
## Action Items
## Decisions
## Main Topics

Under each heading, write a bulleted list. If a section has no content, write a single bullet "- None". Keep the headings in English exactly as written above; write the bullet content in English. Do not add any other headings or commentary.`,

	KindSummarySystem + "_" + LanguagePtBR: `Você é um analista de reuniões especializado. Produza um resumo estruturado da transcrição de reunião fornecida pelo usuário.

Sua saída DEVE ser markdown com exatamente estes quatro títulos de segundo nível, nesta ordem:

## Key Points
## Action Items
## Decisions
## Main Topics

Sob cada título, escreva uma lista com marcadores. Se uma seção não tiver conteúdo, escreva um único marcador "- Nenhum". Mantenha os títulos em inglês exatamente como escritos acima; escreva o conteúdo dos marcadores em português do Brasil. Não adicione outros títulos ou comentários.`,

	KindChunkSystem + "_" + LanguageEnUS: "You are a meeting analyst. Summarize the following portion of a meeting transcript. " +
		"Capture decisions, action items and key discussion points. Be factual and concise. Respond in English.",

	KindChunkSystem + "_" + LanguagePtBR: "Você é um analista de reuniões. Resuma o seguinte trecho de uma transcrição de reunião. " +
		"Capture decisões, itens de ação e pontos-chave de discussão. Seja factual e conciso. Responda em português do Brasil.",

	KindChunkUser + "_" + LanguageEnUS: "Transcript portion:\n\n{content}",

	KindChunkUser + "_" + LanguagePtBR: "Trecho da transcrição:\n\n{content}",

	KindCombineSystem + "_" + LanguageEnUS: "You are a meeting analyst. The user will give you several partial summaries of consecutive " +
		"portions of one meeting. Combine them into a single coherent narrative, removing duplicates " +
		"and keeping chronological order. Respond in English.",

	KindCombineSystem + "_" + LanguagePtBR: "Você é um analista de reuniões. O usuário fornecerá vários resumos parciais de trechos " +
		"consecutivos de uma mesma reunião. Combine-os em uma única narrativa coerente, removendo " +
		"duplicatas e mantendo a ordem cronológica. Responda em português do Brasil.",

	KindCombineUser + "_" + LanguageEnUS: "Partial summaries:\n\n{content}",

	KindCombineUser + "_" + LanguagePtBR: "Resumos parciais:\n\n{content}",
}

// TemplateStore 模板存取
// 内置模板保证每个 (kind, language) 组合都有值；模板目录中的同名文件
// 覆盖内置值，文件变更经 watcher 事件热重载
type TemplateStore struct {
	mu        sync.RWMutex
	overrides map[string]string
	logger    *slog.Logger
}

// NewTemplateStore 创建模板存取并订阅模板变更事件
func NewTemplateStore(bus events.EventBus) *TemplateStore {
	s := &TemplateStore{
		overrides: make(map[string]string),
		logger:    log.NewModuleLogger("prompt", "templates"),
	}

	bus.Subscribe(events.TemplateChanged, events.HandlerFunc(func(event events.Event) error {
		te, ok := event.(*events.TemplateEvent)
		if !ok {
			return nil
		}
		s.reload(te.TemplateKey, te.FilePath)
		return nil
	}))

	return s
}

// reload 重新加载单个模板文件
// 文件被删除时移除覆盖，回到内置模板
func (s *TemplateStore) reload(key, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			delete(s.overrides, key)
			s.mu.Unlock()
			s.logger.Info("template override removed", "key", key)
			return
		}
		s.logger.Error("failed to read template file",
			"key", key,
			"path", path,
			"error", err)
		return
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return
	}

	s.mu.Lock()
	s.overrides[key] = content
	s.mu.Unlock()

	s.logger.Info("template override loaded", "key", key)
}

// Lookup 取 (kind, language) 对应的模板
// 覆盖优先，其次内置；未识别语言回退默认语言，结果对重复调用稳定
func (s *TemplateStore) Lookup(kind, language string) string {
	key := TemplateKey(kind, language)

	s.mu.RLock()
	override, ok := s.overrides[key]
	s.mu.RUnlock()
	if ok {
		return override
	}

	return builtinTemplates[key]
}
