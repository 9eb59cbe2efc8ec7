package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"log/slog"

	"github.com/meetscribe/backend/internal/domain/transcription"
	"github.com/meetscribe/backend/internal/infrastructure/config"
	"github.com/meetscribe/backend/internal/infrastructure/log"
)

const sampleRate = 16000

// ParakeetProvider 本地 Parakeet 识别服务的客户端
// 识别进程作为 sidecar 运行在本机，通过 HTTP 交换 PCM 与识别结果
type ParakeetProvider struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewParakeetProvider 创建 Parakeet 后端
func NewParakeetProvider(cfg *config.EngineConfig) *ParakeetProvider {
	return &ParakeetProvider{
		endpoint:   cfg.RecognizerEndpoint,
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("engine", "parakeet"),
	}
}

// Name 实现 Provider 接口
func (p *ParakeetProvider) Name() string {
	return "parakeet"
}

// loadRequest 模型加载请求
type loadRequest struct {
	ModelPath string `json:"model_path"`
	Backend   string `json:"backend"`
}

// Load 让识别服务加载模型
func (p *ParakeetProvider) Load(ctx context.Context, modelPath string, backend transcription.Backend) error {
	body, err := json.Marshal(loadRequest{
		ModelPath: modelPath,
		Backend:   string(backend),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal load request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/load", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create load request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: recognizer unreachable: %v", transcription.ErrEngineFatal, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: load failed with status %d: %s",
			transcription.ErrEngineFatal, resp.StatusCode, detail)
	}

	p.mu.Lock()
	p.loaded = true
	p.mu.Unlock()

	p.logger.Info("recognizer model loaded",
		"model_path", modelPath,
		"backend", backend)

	return nil
}

// transcribeRequest 识别请求
type transcribeRequest struct {
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language,omitempty"`
	PCMBase64  string `json:"pcm_base64"`
}

// transcribeResponse 识别响应
type transcribeResponse struct {
	Segments []Segment `json:"segments"`
}

// Transcribe 识别一个音频块
// 识别服务对畸形音频返回 422，映射为 ErrDecode 由调用方丢弃该块；
// 其余失败视为致命错误
func (p *ParakeetProvider) Transcribe(ctx context.Context, chunk transcription.AudioChunk) ([]Segment, error) {
	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()
	if !loaded {
		return nil, transcription.ErrModelNotReady
	}

	if len(chunk.PCM) == 0 {
		return nil, fmt.Errorf("%w: empty audio chunk", transcription.ErrDecode)
	}

	body, err := json.Marshal(transcribeRequest{
		SampleRate: sampleRate,
		Language:   chunk.Language,
		PCMBase64:  encodePCM(chunk.PCM),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/transcribe", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: recognizer unreachable: %v", transcription.ErrEngineFatal, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnprocessableEntity:
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s", transcription.ErrDecode, detail)
	default:
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: recognizer returned status %d: %s",
			transcription.ErrEngineFatal, resp.StatusCode, detail)
	}

	var tr transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode recognizer response: %v",
			transcription.ErrEngineFatal, err)
	}

	return tr.Segments, nil
}

// Close 实现 Provider 接口
func (p *ParakeetProvider) Close() error {
	p.mu.Lock()
	p.loaded = false
	p.mu.Unlock()
	return nil
}

// encodePCM 将 s16le 采样编码为 base64
func encodePCM(pcm []int16) string {
	buf := make([]byte, len(pcm)*2)
	for i, sample := range pcm {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

var _ Provider = (*ParakeetProvider)(nil)
