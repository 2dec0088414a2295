package services

import (
	"context"

	"github.com/auditguard/embedding-go/internal/logger"
	"go.uber.org/zap"
)

// AdminService 管理操作：对账清理与全局统计
type AdminService struct {
	store    *VectorService
	pipeline *PipelineService
}

// CleanupResult 对账清理结果
type CleanupResult struct {
	DeletedDocuments  int      `json:"deleted_documents"`
	DeletedChunks     int64    `json:"deleted_chunks"`
	DeletedEmbeddings int64    `json:"deleted_embeddings"`
	DeletedIDs        []string `json:"deleted_ids"`
}

// NewAdminService 创建管理服务
func NewAdminService(store *VectorService, pipeline *PipelineService) *AdminService {
	return &AdminService{store: store, pipeline: pipeline}
}

// CleanupOrphans 对账清理：删除不在有效ID集合内的文档及其级联数据
// 这是周期性的尽力而为同步，不是跨存储的事务性保证——
// 期间新写入的文档可能被误删，调用方应传入足够新鲜的ID集合
func (s *AdminService) CleanupOrphans(ctx context.Context, validDocumentIDs []string) (CleanupResult, error) {
	valid := make(map[string]struct{}, len(validDocumentIDs))
	for _, id := range validDocumentIDs {
		valid[id] = struct{}{}
	}

	allIDs, err := s.store.ListDocumentIDs(ctx)
	if err != nil {
		return CleanupResult{}, err
	}

	result := CleanupResult{DeletedIDs: []string{}}
	for _, id := range allIDs {
		if _, ok := valid[id]; ok {
			continue
		}

		deleted, err := s.pipeline.DeleteDocument(ctx, id)
		if err != nil {
			logger.Error("Cleanup failed for document", zap.String("document_id", id), zap.Error(err))
			return result, err
		}

		result.DeletedDocuments++
		result.DeletedChunks += deleted.DeletedChunks
		result.DeletedEmbeddings += deleted.DeletedEmbeddings
		result.DeletedIDs = append(result.DeletedIDs, id)
	}

	logger.Info("Orphan cleanup completed",
		zap.Int("deleted_documents", result.DeletedDocuments),
		zap.Int("valid_ids", len(validDocumentIDs)))
	return result, nil
}
