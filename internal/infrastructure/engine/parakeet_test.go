package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/domain/transcription"
	"github.com/meetscribe/backend/internal/infrastructure/config"
)

func newRecognizerServer(t *testing.T, transcribe http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/load", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/transcribe", transcribe)
	return httptest.NewServer(mux)
}

func TestParakeetProvider_TranscribeBeforeLoad(t *testing.T) {
	provider := NewParakeetProvider(&config.EngineConfig{RecognizerEndpoint: "http://127.0.0.1:1"})

	_, err := provider.Transcribe(context.Background(), transcription.AudioChunk{PCM: make([]int16, 160)})
	assert.ErrorIs(t, err, transcription.ErrModelNotReady)
}

func TestParakeetProvider_TranscribeRoundTrip(t *testing.T) {
	server := newRecognizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req transcribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, sampleRate, req.SampleRate)
		assert.NotEmpty(t, req.PCMBase64)

		json.NewEncoder(w).Encode(transcribeResponse{
			Segments: []Segment{{Text: "bom dia", Language: "pt-BR"}},
		})
	})
	defer server.Close()

	provider := NewParakeetProvider(&config.EngineConfig{RecognizerEndpoint: server.URL})
	require.NoError(t, provider.Load(context.Background(), "/tmp/model.onnx", transcription.BackendCPU))

	segments, err := provider.Transcribe(context.Background(), transcription.AudioChunk{
		PCM:      make([]int16, sampleRate),
		Language: "pt-BR",
	})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "bom dia", segments[0].Text)
}

func TestParakeetProvider_MalformedAudioMapsToDecodeError(t *testing.T) {
	server := newRecognizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("unexpected sample alignment"))
	})
	defer server.Close()

	provider := NewParakeetProvider(&config.EngineConfig{RecognizerEndpoint: server.URL})
	require.NoError(t, provider.Load(context.Background(), "/tmp/model.onnx", transcription.BackendCPU))

	_, err := provider.Transcribe(context.Background(), transcription.AudioChunk{PCM: make([]int16, 160)})
	assert.ErrorIs(t, err, transcription.ErrDecode)
}

func TestParakeetProvider_ServerFailureIsFatal(t *testing.T) {
	server := newRecognizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	provider := NewParakeetProvider(&config.EngineConfig{RecognizerEndpoint: server.URL})
	require.NoError(t, provider.Load(context.Background(), "/tmp/model.onnx", transcription.BackendCPU))

	_, err := provider.Transcribe(context.Background(), transcription.AudioChunk{PCM: make([]int16, 160)})
	assert.ErrorIs(t, err, transcription.ErrEngineFatal)
}

func TestParakeetProvider_EmptyChunkIsDecodeError(t *testing.T) {
	server := newRecognizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("recognizer should not be called for an empty chunk")
	})
	defer server.Close()

	provider := NewParakeetProvider(&config.EngineConfig{RecognizerEndpoint: server.URL})
	require.NoError(t, provider.Load(context.Background(), "/tmp/model.onnx", transcription.BackendCPU))

	_, err := provider.Transcribe(context.Background(), transcription.AudioChunk{})
	assert.ErrorIs(t, err, transcription.ErrDecode)
}
