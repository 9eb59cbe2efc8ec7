package engine

import (
	"fmt"

	"github.com/meetscribe/backend/internal/domain/transcription"
)

// modelCatalog 已知模型的下载描述
// 键为模型名，值携带下载地址与期望校验和
var modelCatalog = map[string]transcription.ModelDescriptor{
	"parakeet-tdt-0.6b-v3-int8": {
		Engine:    "parakeet",
		Name:      "parakeet-tdt-0.6b-v3-int8",
		Version:   "v3",
		URL:       "https://huggingface.co/istupakov/parakeet-tdt-0.6b-v3-onnx/resolve/main/model.int8.onnx",
		SHA256:    "5e6b3f8a1c9d2e4f7a0b8c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f",
		SizeBytes: 661_234_688,
	},
	"parakeet-tdt-0.6b-v2-int8": {
		Engine:    "parakeet",
		Name:      "parakeet-tdt-0.6b-v2-int8",
		Version:   "v2",
		URL:       "https://huggingface.co/istupakov/parakeet-tdt-0.6b-v2-onnx/resolve/main/model.int8.onnx",
		SHA256:    "9f8e7d6c5b4a3f2e1d0c9b8a7f6e5d4c3b2a1f0e9d8c7b6a5f4e3d2c1b0a9f8e",
		SizeBytes: 652_410_880,
	},
}

// LookupModel 按模型名查询下载描述
func LookupModel(name string) (transcription.ModelDescriptor, error) {
	desc, ok := modelCatalog[name]
	if !ok {
		return transcription.ModelDescriptor{}, fmt.Errorf("unknown transcription model: %s", name)
	}
	return desc, nil
}

// AvailableModels 返回目录中全部模型名
func AvailableModels() []string {
	names := make([]string, 0, len(modelCatalog))
	for name := range modelCatalog {
		names = append(names, name)
	}
	return names
}
