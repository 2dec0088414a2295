package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeModelServer 模拟兼容OpenAI的推理服务
// 向量首元素编码输入下标+1，响应按倒序写回以验证index对齐
func newFakeModelServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]openai.Embedding, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			vec[0] = float32(i + 1)
			data = append(data, openai.Embedding{Object: "embedding", Embedding: vec, Index: i})
		}
		resp := openai.EmbeddingResponse{
			Object: "list",
			Data:   data,
			Model:  openai.EmbeddingModel(req.Model),
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

// TestOpenAIEmbedderLazyLoad 首次调用探测模型，结果按输入顺序对齐
func TestOpenAIEmbedderLazyLoad(t *testing.T) {
	srv := newFakeModelServer(t, 8)
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "test-key", "all-MiniLM-L6-v2", 8, 2)
	assert.False(t, e.Ready())

	vectors, err := e.EmbedBatch(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.True(t, e.Ready())

	// 服务端乱序返回，客户端按index重排
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])
	assert.Len(t, vectors[0], 8)
}

// TestOpenAIEmbedderDimensionMismatch 探测维度不符时永久失败
func TestOpenAIEmbedderDimensionMismatch(t *testing.T) {
	srv := newFakeModelServer(t, 4)
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "test-key", "all-MiniLM-L6-v2", 384, 2)

	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDimensionMismatch, appErr.Code)
	assert.False(t, e.Ready())

	// 加载失败不会重试探测
	_, err = e.EmbedBatch(context.Background(), []string{"b"})
	require.Error(t, err)
	assert.False(t, e.Ready())
}

// TestOpenAIEmbedderReadyDuringLoad 首次加载期间健康检查并发读取Ready
func TestOpenAIEmbedderReadyDuringLoad(t *testing.T) {
	srv := newFakeModelServer(t, 8)
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "test-key", "all-MiniLM-L6-v2", 8, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.Ready()
			}
		}()
	}

	_, err := e.EmbedBatch(context.Background(), []string{"concurrent"})
	wg.Wait()
	require.NoError(t, err)
	assert.True(t, e.Ready())
}
