package modelstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/domain/transcription"
	"github.com/meetscribe/backend/internal/infrastructure/config"
)

// countingDownloader 记录下载次数的测试替身
type countingDownloader struct {
	calls   atomic.Int64
	payload []byte
	delay   time.Duration
	failErr error
}

func (d *countingDownloader) Download(ctx context.Context, url, destPath string, opts DownloadOptions) error {
	d.calls.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if d.failErr != nil {
		return d.failErr
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(destPath, d.payload, 0644)
}

func testDescriptor() transcription.ModelDescriptor {
	return transcription.ModelDescriptor{
		Engine:  "parakeet",
		Name:    "parakeet-tdt-0.6b-v3-int8",
		Version: "v3",
		URL:     "https://models.example.com/parakeet.onnx",
	}
}

func newTestStore(t *testing.T, d Downloader) *Store {
	t.Helper()
	return NewStore(&config.EngineConfig{ModelsDir: t.TempDir()}, d)
}

func TestStore_EnsureAvailableIsIdempotent(t *testing.T) {
	downloader := &countingDownloader{payload: []byte("model-bytes")}
	store := newTestStore(t, downloader)
	desc := testDescriptor()

	path1, err := store.EnsureAvailable(context.Background(), desc)
	require.NoError(t, err)
	assert.FileExists(t, path1)

	// 第二次调用不应产生任何传输
	path2, err := store.EnsureAvailable(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.Equal(t, int64(1), downloader.calls.Load())
}

func TestStore_ConcurrentCallersShareOneTransfer(t *testing.T) {
	downloader := &countingDownloader{
		payload: []byte("model-bytes"),
		delay:   50 * time.Millisecond,
	}
	store := newTestStore(t, downloader)
	desc := testDescriptor()

	const callers = 8
	var wg sync.WaitGroup
	paths := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = store.EnsureAvailable(context.Background(), desc)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
	}
	assert.Equal(t, int64(1), downloader.calls.Load(),
		"concurrent callers should collapse into a single download")
}

func TestStore_FailedFetchIsNotCached(t *testing.T) {
	downloader := &countingDownloader{failErr: ErrChecksumMismatch}
	store := newTestStore(t, downloader)
	desc := testDescriptor()

	_, err := store.EnsureAvailable(context.Background(), desc)
	require.Error(t, err)
	assert.False(t, store.IsAvailable(desc))

	// 失败后重试应再次触发下载，而非复用失败结果
	downloader.failErr = nil
	downloader.payload = []byte("model-bytes")
	path, err := store.EnsureAvailable(context.Background(), desc)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int64(2), downloader.calls.Load())
}

func TestStore_RejectsInvalidDescriptor(t *testing.T) {
	store := newTestStore(t, &countingDownloader{})

	_, err := store.EnsureAvailable(context.Background(), transcription.ModelDescriptor{})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestHTTPDownloader_ChecksumMismatchNeverPublishes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("corrupted-bytes"))
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "model.onnx")
	opts := DefaultDownloadOptions()
	opts.ExpectedChecksum = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	downloader := NewHTTPDownloader()
	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	require.ErrorIs(t, err, ErrChecksumMismatch)

	assert.NoFileExists(t, destPath)
	assert.NoFileExists(t, destPath+".tmp")
}

func TestHTTPDownloader_VerifiesChecksumAndPublishes(t *testing.T) {
	payload := []byte("the-real-model-bytes")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "model.onnx")
	opts := DefaultDownloadOptions()
	opts.ExpectedChecksum = hex.EncodeToString(sum[:])

	var reported atomic.Int64
	opts.OnProgress = func(downloaded, total int64) {
		reported.Store(downloaded)
	}

	downloader := NewHTTPDownloader()
	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	require.NoError(t, err)

	got, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(len(payload)), reported.Load())
}

func TestHTTPDownloader_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "model.onnx")
	opts := DefaultDownloadOptions()
	opts.RetryDelay = time.Millisecond

	downloader := NewHTTPDownloader()
	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(3), attempts.Load())
}

func TestHTTPDownloader_DoesNotRetryNotFound(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "model.onnx")
	opts := DefaultDownloadOptions()
	opts.RetryDelay = time.Millisecond

	downloader := NewHTTPDownloader()
	err := downloader.Download(context.Background(), server.URL, destPath, opts)
	require.ErrorIs(t, err, ErrHTTPStatusNotOK)
	assert.Equal(t, int64(1), attempts.Load())
}
