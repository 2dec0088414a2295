package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/auditguard/embedding-go/internal/logger"
	"github.com/auditguard/embedding-go/internal/models"
	"github.com/auditguard/embedding-go/internal/storage"
	"go.uber.org/zap"
)

// DocumentController 文档处理与检索接口
type DocumentController struct {
	BaseController
	ctx *ServiceContext
}

func (c *DocumentController) Prepare() {
	c.ctx = GetServiceContext()
}

// ProcessDocumentRequest 文档处理请求
type ProcessDocumentRequest struct {
	DocumentID     string  `json:"document_id" validate:"required"`
	WorkspaceID    string  `json:"workspace_id" validate:"required"`
	RawText        string  `json:"raw_text"`
	Filename       string  `json:"filename" validate:"required"`
	ContentType    string  `json:"content_type"`
	FileSize       int64   `json:"file_size"`
	VultrS3Key     string  `json:"vultr_s3_key"`
	SmartbucketKey *string `json:"smartbucket_key,omitempty"`
	UploadedBy     string  `json:"uploaded_by"`
}

// SearchRequest 检索请求
type SearchRequest struct {
	QueryText             string `json:"query_text" validate:"required"`
	WorkspaceID           string `json:"workspace_id" validate:"required"`
	Limit                 int    `json:"limit"`
	ComplianceFrameworkID *int   `json:"compliance_framework_id,omitempty"`
}

// POST /api/v1/documents/process
// 跑完整流水线：存文档 → 分块 → 向量化 → 标注 → 落库
func (c *DocumentController) Process() {
	var req ProcessDocumentRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !c.validateRequest(&req) {
		return
	}
	if req.ContentType == "" {
		req.ContentType = "text/plain"
	}

	// raw_text缺失时尝试按存储key从对象存储拉取原文
	if req.RawText == "" && req.VultrS3Key != "" {
		if store := storage.GetObjectStore(); store != nil {
			text, err := store.FetchText(c.Ctx.Request.Context(), req.VultrS3Key)
			if err != nil {
				logger.Error("Failed to fetch document text from object storage",
					zap.String("key", req.VultrS3Key), zap.Error(err))
				c.JSONAppError(apperrors.NewSystemError(
					"failed to fetch document text from object storage", err))
				return
			}
			req.RawText = text
		}
	}
	if req.RawText == "" {
		c.JSONError(http.StatusBadRequest, "raw_text is required")
		return
	}

	doc := &models.Document{
		ID:             req.DocumentID,
		WorkspaceID:    req.WorkspaceID,
		RawText:        req.RawText,
		Filename:       req.Filename,
		ContentType:    req.ContentType,
		FileSize:       req.FileSize,
		VultrS3Key:     req.VultrS3Key,
		SmartbucketKey: req.SmartbucketKey,
		UploadedBy:     req.UploadedBy,
	}

	result, err := c.ctx.Pipeline.ProcessDocument(c.Ctx.Request.Context(), doc)
	if err != nil {
		logger.Error("Document processing failed",
			zap.String("document_id", req.DocumentID), zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"success":           true,
		"document_id":       result.DocumentID,
		"chunks_created":    result.ChunksCreated,
		"embeddings_stored": result.EmbeddingsStored,
		"message":           "Document processed successfully",
	})
}

// POST /api/v1/documents/search
func (c *DocumentController) Search() {
	var req SearchRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !c.validateRequest(&req) {
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	results, err := c.ctx.Pipeline.Search(c.Ctx.Request.Context(),
		req.QueryText, req.WorkspaceID, req.Limit, req.ComplianceFrameworkID)
	if err != nil {
		logger.Error("Search failed", zap.Error(err))
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"success":       true,
		"query":         req.QueryText,
		"results_count": len(results),
		"results":       results,
	})
}

// GET /api/v1/documents/:id/status
func (c *DocumentController) Status() {
	documentID := c.Ctx.Input.Param(":id")
	ctx := c.Ctx.Request.Context()

	doc, err := c.ctx.Store.GetDocument(ctx, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	stats, err := c.ctx.Store.GetChunkStatistics(ctx, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"document_id":       doc.ID,
		"workspace_id":      doc.WorkspaceID,
		"processing_status": doc.ProcessingStatus,
		"chunk_count":       doc.ChunkCount,
		"embedding_count":   doc.EmbeddingCount,
		"chunks_completed":  stats.Completed,
		"chunks_pending":    stats.Pending,
		"chunks_processing": stats.Processing,
		"chunks_failed":     stats.Failed,
		"created_at":        doc.CreatedAt.Format(time.RFC3339),
		"updated_at":        doc.UpdatedAt.Format(time.RFC3339),
		"processed_at":      formatTimePtr(doc.ProcessedAt),
	})
}

// GET /api/v1/documents/:id/vector-status
func (c *DocumentController) VectorStatus() {
	documentID := c.Ctx.Input.Param(":id")
	ctx := c.Ctx.Request.Context()

	stats, err := c.ctx.Store.GetChunkStatistics(ctx, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	vectorIDs, err := c.ctx.Store.GetVectorIDs(ctx, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	total := stats.Total()
	indexed := stats.Completed

	status := "completed"
	if indexed == 0 {
		status = "failed"
	} else if indexed < total {
		status = "partial"
	}

	c.JSONSuccess(map[string]interface{}{
		"documentId":    documentID,
		"totalChunks":   total,
		"indexedChunks": indexed,
		"vectorIds":     vectorIDs,
		"status":        status,
	})
}

// GET /api/v1/documents/:id/chunks
func (c *DocumentController) Chunks() {
	documentID := c.Ctx.Input.Param(":id")

	chunks, err := c.ctx.Store.GetDocumentChunks(c.Ctx.Request.Context(), documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	formatted := make([]map[string]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		formatted = append(formatted, map[string]interface{}{
			"chunkId":         chunk.ID,
			"chunkIndex":      chunk.ChunkIndex,
			"content":         chunk.ChunkText,
			"chunkSize":       chunk.CharCount,
			"startChar":       chunk.StartPosition,
			"endChar":         chunk.EndPosition,
			"tokenCount":      chunk.TokenCount,
			"embeddingStatus": chunk.EmbeddingStatus,
			"hasHeader":       chunk.HasHeader,
			"sectionTitle":    chunk.SectionTitle,
			"embeddingId":     chunk.EmbeddingID,
			"createdAt":       chunk.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSONSuccess(map[string]interface{}{
		"documentId":  documentID,
		"totalChunks": len(formatted),
		"chunks":      formatted,
	})
}

// GET /api/v1/documents/:id/embedding-stats
func (c *DocumentController) EmbeddingStats() {
	documentID := c.Ctx.Input.Param(":id")
	ctx := c.Ctx.Request.Context()

	stats, err := c.ctx.Store.GetChunkStatistics(ctx, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	total := stats.Total()
	percentage := 0
	if total > 0 {
		percentage = int(float64(stats.Completed)/float64(total)*100 + 0.5)
	}

	chunks, err := c.ctx.Store.GetDocumentChunks(ctx, documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	details := make([]map[string]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		details = append(details, map[string]interface{}{
			"chunkId":         chunk.ID,
			"chunkIndex":      chunk.ChunkIndex,
			"embeddingStatus": chunk.EmbeddingStatus,
			"vectorId":        chunk.EmbeddingID,
			"hasEmbedding":    chunk.EmbeddingStatus == models.StatusCompleted,
		})
	}

	c.JSONSuccess(map[string]interface{}{
		"documentId":  documentID,
		"totalChunks": total,
		"completed":   stats.Completed,
		"pending":     stats.Pending,
		"failed":      stats.Failed,
		"percentage":  percentage,
		"chunks":      details,
	})
}

// DELETE /api/v1/documents/:id
// 级联删除顺序：embeddings → chunks → 文档行，各步骤删除行数计入响应
func (c *DocumentController) Delete() {
	documentID := c.Ctx.Input.Param(":id")

	result, err := c.ctx.Pipeline.DeleteDocument(c.Ctx.Request.Context(), documentID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	message := "Document deleted successfully"
	if !result.DeletedDocument {
		message = "Document not found (may have been already deleted)"
	}

	c.JSONSuccess(map[string]interface{}{
		"documentId":        result.DocumentID,
		"deletedEmbeddings": result.DeletedEmbeddings,
		"deletedChunks":     result.DeletedChunks,
		"deletedDocument":   result.DeletedDocument,
		"success":           true,
		"message":           message,
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
