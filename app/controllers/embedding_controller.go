package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/auditguard/embedding-go/internal/config"
	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/auditguard/embedding-go/internal/logger"
	"go.uber.org/zap"
)

// EmbeddingController 向量生成与缓存管理接口
type EmbeddingController struct {
	BaseController
	ctx *ServiceContext
}

func (c *EmbeddingController) Prepare() {
	c.ctx = GetServiceContext()
}

// EmbedRequest 批量向量化请求
type EmbedRequest struct {
	Texts     []string `json:"texts" validate:"required,min=1"`
	Normalize *bool    `json:"normalize,omitempty"`
	BatchSize int      `json:"batch_size"`
}

// POST /api/v1/embed
func (c *EmbeddingController) Embed() {
	var req EmbedRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !c.validateRequest(&req) {
		return
	}

	cfg := config.GetConfig()
	if len(req.Texts) > cfg.Embedding.MaxBatchSize {
		c.JSONAppError(apperrors.NewValidationError(apperrors.ErrCodeBatchTooLarge,
			"batch size exceeds maximum of "+strconv.Itoa(cfg.Embedding.MaxBatchSize)).
			WithDetails(map[string]int{"max_batch_size": cfg.Embedding.MaxBatchSize, "received": len(req.Texts)}))
		return
	}
	for i, text := range req.Texts {
		if text == "" {
			c.JSONAppError(apperrors.NewValidationError(apperrors.ErrCodeEmptyText,
				"texts must not contain empty strings").
				WithDetails(map[string]int{"index": i}))
			return
		}
		if len(text) > cfg.Embedding.MaxTextLength {
			c.JSONAppError(apperrors.NewValidationError(apperrors.ErrCodeTextTooLong,
				"text length exceeds maximum of "+strconv.Itoa(cfg.Embedding.MaxTextLength)).
				WithDetails(map[string]int{"index": i, "max_text_length": cfg.Embedding.MaxTextLength, "length": len(text)}))
			return
		}
	}

	normalize := true
	if req.Normalize != nil {
		normalize = *req.Normalize
	}

	embeddings, latencyMs, err := c.ctx.Embedding.GenerateEmbeddings(
		c.Ctx.Request.Context(), req.Texts, normalize, req.BatchSize)
	if err != nil {
		logger.Error("Embedding generation failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	info := c.ctx.Embedding.ModelInfo()
	c.JSONSuccess(map[string]interface{}{
		"embeddings": embeddings,
		"dimensions": info.Dimensions,
		"count":      len(embeddings),
		"latency_ms": latencyMs,
		"model":      info.Model,
	})
}

// GET /api/v1/stats
func (c *EmbeddingController) Stats() {
	stats := c.ctx.Embedding.Statistics()
	info := c.ctx.Embedding.ModelInfo()

	c.JSONSuccess(map[string]interface{}{
		"model":            info.Model,
		"dimensions":       info.Dimensions,
		"model_ready":      info.Ready,
		"total_requests":   stats.TotalRequests,
		"total_embeddings": stats.TotalEmbeddings,
		"cache_enabled":    stats.CacheEnabled,
		"cache_size":       stats.CacheSize,
		"cache_capacity":   stats.CacheCapacity,
		"cache_hits":       stats.CacheHits,
		"cache_misses":     stats.CacheMisses,
		"cache_hit_rate":   stats.CacheHitRate,
	})
}

// POST /api/v1/cache/clear
func (c *EmbeddingController) ClearCache() {
	cleared := c.ctx.Embedding.ClearCache()
	logger.Info("Embedding cache cleared", zap.Int("entries", cleared))

	c.JSONSuccess(map[string]interface{}{
		"success":         true,
		"entries_cleared": cleared,
		"message":         "Embedding cache cleared",
	})
}
