package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/meetscribe/backend/internal/domain/events"
	"github.com/meetscribe/backend/internal/infrastructure/log"
)

// templateExtensions 被视为模板的文件扩展名
var templateExtensions = map[string]bool{
	".tmpl": true,
	".md":   true,
	".txt":  true,
}

// WatchConfig TemplateWatcher 配置
type WatchConfig struct {
	// TemplateDir 提示词模板目录
	TemplateDir string
	// DebounceDelay 防抖延迟
	DebounceDelay time.Duration
}

// DefaultWatchConfig 返回默认配置
func DefaultWatchConfig(templateDir string) WatchConfig {
	return WatchConfig{
		TemplateDir:   templateDir,
		DebounceDelay: 500 * time.Millisecond,
	}
}

// TemplateWatcher 提示词模板目录监听器
// 模板文件变更后发布 TemplateChanged 事件，由模板缓存订阅重载；
// 编辑器保存会触发连续多个写事件，按文件防抖合并
type TemplateWatcher struct {
	config   WatchConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// 防抖相关
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// 控制
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTemplateWatcher 创建模板监听器
func NewTemplateWatcher(config WatchConfig, eventBus events.EventBus) (*TemplateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &TemplateWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "template_watcher"),
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动模板监听
func (tw *TemplateWatcher) Start() error {
	tw.logger.Info("Starting template watcher",
		"template_dir", tw.config.TemplateDir,
	)

	if err := os.MkdirAll(tw.config.TemplateDir, 0755); err != nil {
		return err
	}

	// 启动时扫描一次，让订阅方预热已有模板
	tw.scanExisting()

	if err := tw.watcher.Add(tw.config.TemplateDir); err != nil {
		return err
	}

	tw.wg.Add(1)
	go tw.watchLoop()

	return nil
}

// Stop 停止模板监听
func (tw *TemplateWatcher) Stop() {
	tw.logger.Info("Stopping template watcher")

	close(tw.stopCh)
	tw.watcher.Close()
	tw.wg.Wait()

	// 取消所有防抖定时器
	tw.debounceMu.Lock()
	for _, timer := range tw.debounceTimers {
		timer.Stop()
	}
	tw.debounceMu.Unlock()

	tw.logger.Info("Template watcher stopped")
}

// scanExisting 扫描目录中已有的模板文件并逐一发布事件
func (tw *TemplateWatcher) scanExisting() {
	entries, err := os.ReadDir(tw.config.TemplateDir)
	if err != nil {
		tw.logger.Error("Failed to read template directory", "error", err)
		return
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !isTemplateFile(entry.Name()) {
			continue
		}

		path := filepath.Join(tw.config.TemplateDir, entry.Name())
		tw.eventBus.Publish(&events.TemplateEvent{
			TemplateKey: templateKey(path),
			FilePath:    path,
			EventTime:   time.Now(),
		})
		count++
	}

	tw.logger.Info("Initial template scan completed", "templates", count)
}

// watchLoop 事件监听循环
func (tw *TemplateWatcher) watchLoop() {
	defer tw.wg.Done()

	for {
		select {
		case <-tw.stopCh:
			return

		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			tw.handleFsEvent(event)

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			tw.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleFsEvent 处理文件系统事件（带防抖）
func (tw *TemplateWatcher) handleFsEvent(fsEvent fsnotify.Event) {
	if !isTemplateFile(fsEvent.Name) {
		return
	}
	if !fsEvent.Has(fsnotify.Create) && !fsEvent.Has(fsnotify.Write) &&
		!fsEvent.Has(fsnotify.Remove) && !fsEvent.Has(fsnotify.Rename) {
		return
	}

	tw.debounceMu.Lock()
	defer tw.debounceMu.Unlock()

	// 取消之前的定时器
	if timer, exists := tw.debounceTimers[fsEvent.Name]; exists {
		timer.Stop()
	}

	// 创建新的防抖定时器
	tw.debounceTimers[fsEvent.Name] = time.AfterFunc(tw.config.DebounceDelay, func() {
		tw.emitTemplateEvent(fsEvent.Name)

		// 清理定时器
		tw.debounceMu.Lock()
		delete(tw.debounceTimers, fsEvent.Name)
		tw.debounceMu.Unlock()
	})
}

// emitTemplateEvent 发送模板变更事件
func (tw *TemplateWatcher) emitTemplateEvent(path string) {
	tw.eventBus.Publish(&events.TemplateEvent{
		TemplateKey: templateKey(path),
		FilePath:    path,
		EventTime:   time.Now(),
	})

	tw.logger.Debug("Template event emitted",
		"template_key", templateKey(path),
		"path", path,
	)
}

// isTemplateFile 判断是否为模板文件
func isTemplateFile(path string) bool {
	return templateExtensions[strings.ToLower(filepath.Ext(path))]
}

// templateKey 模板键：文件名去掉扩展名
func templateKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
