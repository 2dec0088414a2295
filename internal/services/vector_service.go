package services

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/auditguard/embedding-go/internal/knowledge"
	"github.com/auditguard/embedding-go/internal/logger"
	"github.com/auditguard/embedding-go/internal/models"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VectorService 文档/分块/向量的关系存储适配器
type VectorService struct {
	db *gorm.DB
}

// NewVectorService 创建存储适配器
func NewVectorService(db *gorm.DB) *VectorService {
	return &VectorService{db: db}
}

// SearchResult 向量检索结果（显式字段，不做反射式行映射）
type SearchResult struct {
	ID                    string   `json:"id"`
	ChunkID               uint     `json:"chunk_id"`
	DocumentID            string   `json:"document_id"`
	ChunkText             string   `json:"chunk_text"`
	Filename              string   `json:"filename"`
	ComplianceFrameworkID *int     `json:"compliance_framework_id,omitempty"`
	ComplianceTags        []string `json:"compliance_tags"`
	Keywords              []string `json:"keywords"`
	Distance              float64  `json:"distance"`
	Similarity            float64  `json:"similarity"`
}

// ChunkStatistics 分块状态统计（逐块GROUP BY统计，不用文档计数差值推算）
type ChunkStatistics struct {
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}

// Total 分块总数
func (s ChunkStatistics) Total() int {
	return s.Completed + s.Pending + s.Processing + s.Failed
}

// DeleteResult 级联删除各步骤的删除行数
type DeleteResult struct {
	DocumentID        string `json:"documentId"`
	DeletedEmbeddings int64  `json:"deletedEmbeddings"`
	DeletedChunks     int64  `json:"deletedChunks"`
	DeletedDocument   bool   `json:"deletedDocument"`
}

// StoreDocument 写入或更新文档记录，状态置为processing
func (s *VectorService) StoreDocument(ctx context.Context, doc *models.Document) error {
	doc.ProcessingStatus = models.StatusProcessing

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"raw_text", "updated_at", "processing_status",
		}),
	}).Create(doc).Error
	if err != nil {
		return apperrors.NewPersistenceError("failed to store document", err)
	}

	logger.Info("Stored document", zap.String("document_id", doc.ID))
	return nil
}

// StoreChunks 在单个事务内写入全部分块行，返回生成的分块ID（按ordinal顺序）
func (s *VectorService) StoreChunks(ctx context.Context, documentID, workspaceID string, records []knowledge.ChunkRecord) ([]uint, error) {
	chunkIDs := make([]uint, 0, len(records))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			chunk := models.Chunk{
				DocumentID:      documentID,
				WorkspaceID:     workspaceID,
				ChunkIndex:      rec.ChunkIndex,
				ChunkText:       rec.ChunkText,
				TokenCount:      rec.TokenCount,
				CharCount:       rec.CharCount,
				StartPosition:   rec.StartPosition,
				EndPosition:     rec.EndPosition,
				HasHeader:       rec.HasHeader,
				SectionTitle:    rec.SectionTitle,
				EmbeddingStatus: models.StatusPending,
			}
			if err := tx.Create(&chunk).Error; err != nil {
				return err
			}
			chunkIDs = append(chunkIDs, chunk.ID)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to store chunks", err)
	}

	logger.Info("Stored chunks",
		zap.String("document_id", documentID),
		zap.Int("count", len(chunkIDs)))
	return chunkIDs, nil
}

// StoreEmbeddings 在单个事务内写入向量行、更新分块状态并回写文档统计
// 统计（chunk_count/embedding_count/processed_at）仅在成功路径写入
func (s *VectorService) StoreEmbeddings(ctx context.Context, documentID, workspaceID string,
	chunkIDs []uint, embeddings [][]float32, tags []knowledge.TagResult) (int, error) {

	if len(chunkIDs) != len(embeddings) || len(chunkIDs) != len(tags) {
		return 0, apperrors.NewValidationError(apperrors.ErrCodeValidationFailed,
			fmt.Sprintf("mismatched lengths: %d chunks, %d embeddings, %d tags",
				len(chunkIDs), len(embeddings), len(tags)))
	}

	stored := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range chunkIDs {
			emb := models.Embedding{
				ID:                    fmt.Sprintf("%s_emb_%d", documentID, i),
				ChunkID:               chunkIDs[i],
				DocumentID:            documentID,
				WorkspaceID:           workspaceID,
				Embedding:             pgvector.NewVector(embeddings[i]),
				ComplianceFrameworkID: tags[i].ComplianceFrameworkID,
				ComplianceTags:        pq.StringArray(tags[i].ComplianceTags),
				Keywords:              pq.StringArray(tags[i].Keywords),
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "chunk_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"embedding", "compliance_framework_id", "compliance_tags", "keywords", "updated_at",
				}),
			}).Create(&emb).Error; err != nil {
				return err
			}
			stored++
		}

		// 分块状态置为completed
		if err := tx.Model(&models.Chunk{}).
			Where("document_id = ?", documentID).
			Update("embedding_status", models.StatusCompleted).Error; err != nil {
			return err
		}

		// 回写文档统计并置为completed
		now := time.Now()
		return tx.Model(&models.Document{}).
			Where("id = ?", documentID).
			Updates(map[string]interface{}{
				"processing_status": models.StatusCompleted,
				"chunk_count":       len(chunkIDs),
				"embedding_count":   stored,
				"processed_at":      now,
				"updated_at":        now,
			}).Error
	})
	if err != nil {
		return 0, apperrors.NewPersistenceError("failed to store embeddings", err)
	}

	logger.Info("Stored embeddings",
		zap.String("document_id", documentID),
		zap.Int("count", stored))
	return stored, nil
}

// MarkDocumentFailed 将文档标记为failed
func (s *VectorService) MarkDocumentFailed(ctx context.Context, documentID string) error {
	return s.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", documentID).
		Update("processing_status", models.StatusFailed).Error
}

// GetDocument 按ID查询文档
func (s *VectorService) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", documentID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NewNotFoundError(apperrors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %s not found", documentID))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get document", err)
	}
	return &doc, nil
}

// ChunkWithEmbeddingID 分块及其向量ID
type ChunkWithEmbeddingID struct {
	models.Chunk
	EmbeddingID *string `json:"embedding_id,omitempty" gorm:"column:embedding_id"`
}

// GetDocumentChunks 查询文档的全部分块（含向量ID），按ordinal排序
func (s *VectorService) GetDocumentChunks(ctx context.Context, documentID string) ([]ChunkWithEmbeddingID, error) {
	var chunks []ChunkWithEmbeddingID
	err := s.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, embeddings.id AS embedding_id").
		Joins("LEFT JOIN embeddings ON chunks.id = embeddings.chunk_id").
		Where("chunks.document_id = ?", documentID).
		Order("chunks.chunk_index").
		Find(&chunks).Error
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get document chunks", err)
	}
	return chunks, nil
}

// GetChunkStatistics 按embedding_status逐块统计
// documentID为空字符串时统计全库
func (s *VectorService) GetChunkStatistics(ctx context.Context, documentID string) (ChunkStatistics, error) {
	type statusRow struct {
		EmbeddingStatus string
		Count           int
	}

	query := s.db.WithContext(ctx).Model(&models.Chunk{}).
		Select("embedding_status, COUNT(*) AS count").
		Group("embedding_status")
	if documentID != "" {
		query = query.Where("document_id = ?", documentID)
	}

	var rows []statusRow
	if err := query.Find(&rows).Error; err != nil {
		return ChunkStatistics{}, apperrors.NewPersistenceError("failed to get chunk statistics", err)
	}

	var stats ChunkStatistics
	for _, row := range rows {
		switch row.EmbeddingStatus {
		case models.StatusCompleted:
			stats.Completed = row.Count
		case models.StatusPending:
			stats.Pending = row.Count
		case models.StatusProcessing:
			stats.Processing = row.Count
		case models.StatusFailed:
			stats.Failed = row.Count
		}
	}
	return stats, nil
}

// GetVectorIDs 查询文档已完成分块的向量ID，按ordinal排序
func (s *VectorService) GetVectorIDs(ctx context.Context, documentID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("embeddings").
		Select("embeddings.id").
		Joins("JOIN chunks ON embeddings.chunk_id = chunks.id").
		Where("chunks.document_id = ? AND chunks.embedding_status = ?", documentID, models.StatusCompleted).
		Order("chunks.chunk_index").
		Pluck("embeddings.id", &ids).Error
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get vector ids", err)
	}
	return ids, nil
}

type searchRow struct {
	ID                    string
	ChunkID               uint
	DocumentID            string
	ChunkText             string
	Filename              string
	ComplianceFrameworkID *int
	ComplianceTags        pq.StringArray `gorm:"type:text[]"`
	Keywords              pq.StringArray `gorm:"type:text[]"`
	Distance              float64
}

// SearchSimilar 余弦距离最近邻检索
// 过滤条件（workspace与可选框架）先于排序应用，再按距离升序截断到limit；
// 距离相同的行顺序由存储引擎决定，跨调用不保证稳定
func (s *VectorService) SearchSimilar(ctx context.Context, queryEmbedding []float32,
	workspaceID string, limit int, complianceFrameworkID *int) ([]SearchResult, error) {

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			e.id,
			e.chunk_id,
			e.document_id,
			c.chunk_text,
			d.filename,
			e.compliance_framework_id,
			e.compliance_tags,
			e.keywords,
			e.embedding <=> ? AS distance
		FROM embeddings e
		JOIN chunks c ON e.chunk_id = c.id
		JOIN documents d ON e.document_id = d.id
		WHERE e.workspace_id = ?`

	args := []interface{}{pgvector.NewVector(queryEmbedding), workspaceID}
	if complianceFrameworkID != nil {
		query += " AND e.compliance_framework_id = ?"
		args = append(args, *complianceFrameworkID)
	}
	query += " ORDER BY distance LIMIT ?"
	args = append(args, limit)

	var rows []searchRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, apperrors.NewPersistenceError("vector search failed", err)
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, SearchResult{
			ID:                    row.ID,
			ChunkID:               row.ChunkID,
			DocumentID:            row.DocumentID,
			ChunkText:             row.ChunkText,
			Filename:              row.Filename,
			ComplianceFrameworkID: row.ComplianceFrameworkID,
			ComplianceTags:        []string(row.ComplianceTags),
			Keywords:              []string(row.Keywords),
			Distance:              row.Distance,
			Similarity:            1 - row.Distance,
		})
	}
	return results, nil
}

// DeleteDocument 级联删除：先embeddings，再chunks，最后文档行
// 文档不存在时返回零计数，不视为错误（删除是幂等操作）
func (s *VectorService) DeleteDocument(ctx context.Context, documentID string) (DeleteResult, error) {
	result := DeleteResult{DocumentID: documentID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Document{}).Where("id = ?", documentID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return nil
		}

		del := tx.Where("document_id = ?", documentID).Delete(&models.Embedding{})
		if del.Error != nil {
			return del.Error
		}
		result.DeletedEmbeddings = del.RowsAffected

		del = tx.Where("document_id = ?", documentID).Delete(&models.Chunk{})
		if del.Error != nil {
			return del.Error
		}
		result.DeletedChunks = del.RowsAffected

		del = tx.Where("id = ?", documentID).Delete(&models.Document{})
		if del.Error != nil {
			return del.Error
		}
		result.DeletedDocument = del.RowsAffected > 0
		return nil
	})
	if err != nil {
		return DeleteResult{DocumentID: documentID}, apperrors.NewPersistenceError("failed to delete document", err)
	}

	logger.Info("Deleted document",
		zap.String("document_id", documentID),
		zap.Int64("chunks", result.DeletedChunks),
		zap.Int64("embeddings", result.DeletedEmbeddings))
	return result, nil
}

// ListDocumentIDs 返回全部文档ID
func (s *VectorService) ListDocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Document{}).Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.NewPersistenceError("failed to list document ids", err)
	}
	return ids, nil
}

// RecentDocument 近期文档及其处理统计
type RecentDocument struct {
	DocumentID          string    `json:"document_id" gorm:"column:document_id"`
	Filename            string    `json:"filename"`
	UploadedAt          time.Time `json:"uploaded_at" gorm:"column:uploaded_at"`
	ChunkCount          int       `json:"chunk_count"`
	EmbeddingsGenerated int       `json:"embeddings_generated" gorm:"column:embeddings_generated"`
	Status              string    `json:"status"`
}

// GetRecentDocuments 按创建时间倒序返回近期文档
func (s *VectorService) GetRecentDocuments(ctx context.Context, limit int) ([]RecentDocument, error) {
	if limit <= 0 {
		limit = 20
	}

	var docs []RecentDocument
	err := s.db.WithContext(ctx).
		Table("documents").
		Select("id AS document_id, filename, created_at AS uploaded_at, chunk_count, embedding_count AS embeddings_generated, processing_status AS status").
		Order("created_at DESC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get recent documents", err)
	}
	return docs, nil
}
