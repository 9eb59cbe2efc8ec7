package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"log/slog"

	"github.com/meetscribe/backend/internal/domain/transcription"
	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/log"
)

var (
	ErrInvalidDescriptor = errors.New("invalid model descriptor")
)

// Store 模型制品缓存
// EnsureAvailable 是幂等的：制品已就绪时直接返回本地路径，不产生网络传输；
// 同一制品的并发请求合并为一次下载，其余调用方等待同一结果
type Store struct {
	baseDir    string
	downloader Downloader
	logger     *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightFetch
}

// inflightFetch 进行中的下载，done 关闭后 path/err 可读
type inflightFetch struct {
	done chan struct{}
	path string
	err  error
}

// NewStore 创建模型缓存
func NewStore(cfg *config.EngineConfig, downloader Downloader) *Store {
	return &Store{
		baseDir:    cfg.ModelsDir,
		downloader: downloader,
		logger:     log.NewModuleLogger("modelstore", "store"),
		inflight:   make(map[string]*inflightFetch),
	}
}

// ArtifactPath 返回描述符对应的本地缓存路径（不保证存在）
func (s *Store) ArtifactPath(desc transcription.ModelDescriptor) string {
	return filepath.Join(s.baseDir, desc.CacheKey())
}

// IsAvailable 检查制品是否已缓存
func (s *Store) IsAvailable(desc transcription.ModelDescriptor) bool {
	info, err := os.Stat(s.ArtifactPath(desc))
	return err == nil && !info.IsDir()
}

// EnsureAvailable 确保模型制品就绪并返回其本地路径
// 制品缺失时下载到临时文件、校验 SHA256、原子重命名发布；
// 校验失败的制品绝不会出现在缓存目录中
func (s *Store) EnsureAvailable(ctx context.Context, desc transcription.ModelDescriptor) (string, error) {
	if err := validateDescriptor(desc); err != nil {
		return "", err
	}

	destPath := s.ArtifactPath(desc)

	// 快路径：已缓存则零传输返回
	if info, err := os.Stat(destPath); err == nil && !info.IsDir() {
		return destPath, nil
	}

	// 检查并插入必须在同一把锁内完成，否则并发调用会各自发起下载
	s.mu.Lock()
	if call, ok := s.inflight[desc.CacheKey()]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.path, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	call := &inflightFetch{done: make(chan struct{})}
	s.inflight[desc.CacheKey()] = call
	s.mu.Unlock()

	call.path, call.err = s.fetch(ctx, desc, destPath)
	close(call.done)

	s.mu.Lock()
	delete(s.inflight, desc.CacheKey())
	s.mu.Unlock()

	return call.path, call.err
}

// fetch 执行实际下载，锁外运行
func (s *Store) fetch(ctx context.Context, desc transcription.ModelDescriptor, destPath string) (string, error) {
	// 持锁窗口之外可能已有其他进程完成下载，再查一次
	if info, err := os.Stat(destPath); err == nil && !info.IsDir() {
		return destPath, nil
	}

	s.logger.Info("fetching model artifact",
		"engine", desc.Engine,
		"model", desc.Name,
		"version", desc.Version)

	opts := DefaultDownloadOptions()
	opts.ExpectedChecksum = desc.SHA256
	opts.ExpectedSize = desc.SizeBytes
	opts.OnProgress = func(downloaded, total int64) {
		if total > 0 {
			s.logger.Debug("download progress",
				"model", desc.Name,
				"percent", fmt.Sprintf("%.1f", float64(downloaded)*100/float64(total)))
		}
	}

	if err := s.downloader.Download(ctx, desc.URL, destPath, opts); err != nil {
		return "", fmt.Errorf("failed to fetch model %s: %w", desc.Name, err)
	}

	return destPath, nil
}

// Remove 删除已缓存的制品
func (s *Store) Remove(desc transcription.ModelDescriptor) error {
	path := s.ArtifactPath(desc)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove model artifact: %w", err)
	}
	return nil
}

// ListCached 列出缓存目录中的制品文件名
func (s *Store) ListCached() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func validateDescriptor(desc transcription.ModelDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidDescriptor)
	}
	if desc.URL == "" {
		return fmt.Errorf("%w: url is empty", ErrInvalidDescriptor)
	}
	return nil
}
