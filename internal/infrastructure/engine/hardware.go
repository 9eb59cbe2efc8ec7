package engine

import (
	"os"

	"github.com/meetscribe/backend/internal/domain/transcription"
)

// gpuRuntimePaths GPU 运行时的探测路径
var gpuRuntimePaths = []string{
	"/dev/nvidia0",
	"/usr/local/cuda",
	"/proc/driver/nvidia",
}

// ProbeBackend 探测可用硬件后端
// GPU 运行时存在则选 GPU，否则回退 CPU；每次引擎初始化只探测一次，
// 会话中途不变更
func ProbeBackend() transcription.Backend {
	if os.Getenv("MEETSCRIBE_FORCE_CPU") != "" {
		return transcription.BackendCPU
	}
	if os.Getenv("CUDA_VISIBLE_DEVICES") == "-1" {
		return transcription.BackendCPU
	}

	for _, path := range gpuRuntimePaths {
		if _, err := os.Stat(path); err == nil {
			return transcription.BackendGPU
		}
	}

	return transcription.BackendCPU
}
