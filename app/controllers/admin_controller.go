package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/auditguard/embedding-go/internal/logger"
	"go.uber.org/zap"
)

// AdminController 运维对账接口
type AdminController struct {
	BaseController
	ctx *ServiceContext
}

func (c *AdminController) Prepare() {
	c.ctx = GetServiceContext()
}

// CleanupRequest 孤儿文档清理请求
// valid_document_ids为权威文档ID全集，库中不在集合内的文档会被级联删除
type CleanupRequest struct {
	ValidDocumentIDs []string `json:"valid_document_ids" validate:"required"`
}

// POST /api/v1/admin/cleanup
func (c *AdminController) Cleanup() {
	var req CleanupRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !c.validateRequest(&req) {
		return
	}

	result, err := c.ctx.Admin.CleanupOrphans(c.Ctx.Request.Context(), req.ValidDocumentIDs)
	if err != nil {
		logger.Error("Orphan cleanup failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	logger.Info("Orphan cleanup completed",
		zap.Int("deleted_documents", result.DeletedDocuments),
		zap.Int64("deleted_chunks", result.DeletedChunks),
		zap.Int64("deleted_embeddings", result.DeletedEmbeddings))

	c.JSONSuccess(map[string]interface{}{
		"success":            true,
		"deleted_documents":  result.DeletedDocuments,
		"deleted_chunks":     result.DeletedChunks,
		"deleted_embeddings": result.DeletedEmbeddings,
		"deleted_ids":        result.DeletedIDs,
	})
}

// GET /api/v1/admin/vector-stats
// 全库向量覆盖情况与最近入库文档
func (c *AdminController) VectorStats() {
	ctx := c.Ctx.Request.Context()

	stats, err := c.ctx.Store.GetChunkStatistics(ctx, "")
	if err != nil {
		c.JSONAppError(err)
		return
	}

	recent, err := c.ctx.Store.GetRecentDocuments(ctx, 20)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"totalChunks":      stats.Total(),
		"completedChunks":  stats.Completed,
		"pendingChunks":    stats.Pending,
		"processingChunks": stats.Processing,
		"failedChunks":     stats.Failed,
		"recentDocuments":  recent,
	})
}
