package knowledge

import (
	"context"
	"sync/atomic"
	"time"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/auditguard/embedding-go/internal/metrics"
)

// EmbeddingService 带缓存的嵌入生成服务
// 进程内单实例，由bootstrap构造后注入各处使用，缓存与计数器为全局共享状态
type EmbeddingService struct {
	embedder     Embedder
	cache        *embeddingCache
	cacheEnabled bool
	maxBatchSize int
	model        string

	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
	totalRequests   atomic.Int64
	totalEmbeddings atomic.Int64
}

// EmbeddingStats 服务统计信息
type EmbeddingStats struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalEmbeddings int64   `json:"total_embeddings"`
	CacheEnabled    bool    `json:"cache_enabled"`
	CacheSize       int     `json:"cache_size"`
	CacheCapacity   int     `json:"cache_capacity"`
	CacheHits       int64   `json:"cache_hits"`
	CacheMisses     int64   `json:"cache_misses"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Ready      bool   `json:"ready"`
}

// NewEmbeddingService 创建嵌入服务
func NewEmbeddingService(embedder Embedder, model string, cacheEnabled bool, cacheCapacity, maxBatchSize int) *EmbeddingService {
	if maxBatchSize <= 0 {
		maxBatchSize = 32
	}
	return &EmbeddingService{
		embedder:     embedder,
		cache:        newEmbeddingCache(cacheCapacity),
		cacheEnabled: cacheEnabled,
		maxBatchSize: maxBatchSize,
		model:        model,
	}
}

// GenerateEmbeddings 为一批文本生成向量
// 返回的向量序列与输入顺序严格对齐，无论命中缓存还是新生成；
// 同一文本在normalize=true与false下是两个独立的缓存条目
func (s *EmbeddingService) GenerateEmbeddings(ctx context.Context, texts []string, normalize bool, batchSize int) ([][]float32, float64, error) {
	start := time.Now()

	s.totalRequests.Add(1)
	s.totalEmbeddings.Add(int64(len(texts)))

	embeddings := make([][]float32, len(texts))
	var missIndices []int
	var missTexts []string

	// 先查缓存，记录命中与未命中
	for i, text := range texts {
		if s.cacheEnabled {
			if vec, ok := s.cache.Get(cacheKey(text, normalize)); ok {
				s.cacheHits.Add(1)
				metrics.CacheHitsTotal.Inc()
				embeddings[i] = vec
				continue
			}
			s.cacheMisses.Add(1)
			metrics.CacheMissesTotal.Inc()
		}
		missIndices = append(missIndices, i)
		missTexts = append(missTexts, text)
	}

	// 未命中的文本分批调用模型生成
	if len(missTexts) > 0 {
		if batchSize <= 0 {
			batchSize = s.maxBatchSize
		}

		generated := make([][]float32, 0, len(missTexts))
		for offset := 0; offset < len(missTexts); offset += batchSize {
			end := offset + batchSize
			if end > len(missTexts) {
				end = len(missTexts)
			}
			vectors, err := s.embedder.EmbedBatch(ctx, missTexts[offset:end])
			if err != nil {
				// 整批失败，不返回部分结果
				if _, ok := apperrors.AsAppError(err); ok {
					return nil, 0, err
				}
				return nil, 0, apperrors.NewModelError(apperrors.ErrCodeGenerationFailed,
					"embedding generation failed").WithCause(err)
			}
			generated = append(generated, vectors...)
		}

		metrics.EmbeddingsGeneratedTotal.Add(float64(len(generated)))

		for j, vec := range generated {
			if normalize {
				vec = normalizeVector(vec)
			}
			idx := missIndices[j]
			embeddings[idx] = vec
			if s.cacheEnabled {
				s.cache.Put(cacheKey(texts[idx], normalize), vec)
			}
		}
	}

	elapsed := time.Since(start)
	metrics.EmbeddingLatency.Observe(elapsed.Seconds())
	latencyMs := float64(elapsed.Microseconds()) / 1000.0

	return embeddings, latencyMs, nil
}

// Statistics 返回缓存与请求统计
func (s *EmbeddingService) Statistics() EmbeddingStats {
	hits := s.cacheHits.Load()
	misses := s.cacheMisses.Load()

	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return EmbeddingStats{
		TotalRequests:   s.totalRequests.Load(),
		TotalEmbeddings: s.totalEmbeddings.Load(),
		CacheEnabled:    s.cacheEnabled,
		CacheSize:       s.cache.Len(),
		CacheCapacity:   s.cache.capacity,
		CacheHits:       hits,
		CacheMisses:     misses,
		CacheHitRate:    hitRate,
	}
}

// ModelInfo 返回模型信息
func (s *EmbeddingService) ModelInfo() ModelInfo {
	return ModelInfo{
		Model:      s.model,
		Dimensions: s.embedder.Dimensions(),
		Ready:      s.embedder.Ready(),
	}
}

// Dimensions 返回向量维度
func (s *EmbeddingService) Dimensions() int {
	return s.embedder.Dimensions()
}

// ClearCache 清空缓存，返回清除的条目数
func (s *EmbeddingService) ClearCache() int {
	return s.cache.Clear()
}
