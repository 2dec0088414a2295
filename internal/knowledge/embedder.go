package knowledge

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/auditguard/embedding-go/internal/logger"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Embedder 定义文本向量化接口
// EmbedBatch对同一批输入发起一次推理调用，返回与输入顺序对齐的向量
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

// OpenAIEmbedder 调用兼容OpenAI Embedding API的推理服务
// 模型句柄懒加载：首次调用时探测模型并校验输出维度，维度不符则永久失败直至重启
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int

	loadOnce sync.Once
	loadErr  error
	loaded   atomic.Bool

	// 限制并发的模型调用数，推理是阻塞的CPU/GPU密集操作
	sem chan struct{}
}

// NewOpenAIEmbedder 创建嵌入向量生成器
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions, maxParallel int) *OpenAIEmbedder {
	if model == "" {
		model = "all-MiniLM-L6-v2"
	}
	if maxParallel <= 0 {
		maxParallel = 4
	}

	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
		sem:        make(chan struct{}, maxParallel),
	}
}

// load 首次使用时探测模型并校验维度
func (e *OpenAIEmbedder) load(ctx context.Context) error {
	e.loadOnce.Do(func() {
		probe, err := e.encode(ctx, []string{"test"})
		if err != nil {
			e.loadErr = apperrors.NewModelError(apperrors.ErrCodeModelNotLoaded,
				"failed to load embedding model").WithCause(err)
			return
		}
		if len(probe) == 0 || len(probe[0]) != e.dimensions {
			got := 0
			if len(probe) > 0 {
				got = len(probe[0])
			}
			e.loadErr = apperrors.NewModelError(apperrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("model dimension mismatch: expected %d, got %d", e.dimensions, got))
			return
		}
		e.loaded.Store(true)
		logger.Info("Embedding model loaded",
			zap.String("model", e.model),
			zap.Int("dimensions", e.dimensions))
	})
	return e.loadErr
}

// EmbedBatch 对一批文本生成向量，顺序与输入对齐
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.load(ctx); err != nil {
		return nil, err
	}
	return e.encode(ctx, texts)
}

func (e *OpenAIEmbedder) encode(ctx context.Context, texts []string) ([][]float32, error) {
	e.sem <- struct{}{}
	defer func() { <-e.sem }()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response size mismatch: expected %d, got %d", len(texts), len(resp.Data))
	}

	// 响应按index排序后复制，避免共享底层数组
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index out of range: %d", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		copy(vec, item.Embedding)
		vectors[item.Index] = vec
	}
	return vectors, nil
}

// Dimensions 返回配置的向量维度
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Ready 模型是否已加载成功
// 可能在load进行中被健康检查并发读取
func (e *OpenAIEmbedder) Ready() bool {
	return e.loaded.Load()
}

// normalizeVector 归一化为单位向量，零向量原样返回
func normalizeVector(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
