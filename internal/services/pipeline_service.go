package services

import (
	"context"

	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/auditguard/embedding-go/internal/kafka"
	"github.com/auditguard/embedding-go/internal/knowledge"
	"github.com/auditguard/embedding-go/internal/logger"
	"github.com/auditguard/embedding-go/internal/metrics"
	"github.com/auditguard/embedding-go/internal/models"
	"go.uber.org/zap"
)

// PipelineService 文档处理流水线：分块 → 向量化 → 标注 → 持久化
// 状态机：pending → processing → completed|failed，失败的文档必须整体重新处理，
// 不支持对部分写入的分块做增量续传
type PipelineService struct {
	chunker   *knowledge.Chunker
	tagger    *knowledge.Tagger
	embedding *knowledge.EmbeddingService
	store     *VectorService
}

// ProcessResult 处理结果
type ProcessResult struct {
	DocumentID       string `json:"document_id"`
	ChunksCreated    int    `json:"chunks_created"`
	EmbeddingsStored int    `json:"embeddings_stored"`
}

// NewPipelineService 创建流水线服务
func NewPipelineService(chunker *knowledge.Chunker, tagger *knowledge.Tagger,
	embedding *knowledge.EmbeddingService, store *VectorService) *PipelineService {
	return &PipelineService{
		chunker:   chunker,
		tagger:    tagger,
		embedding: embedding,
		store:     store,
	}
}

// ProcessDocument 跑完整处理流水线
// 任一持久化步骤失败或分块为零时，文档标记为failed并返回错误；
// 响应中的计数始终反映实际落库的行数
func (p *PipelineService) ProcessDocument(ctx context.Context, doc *models.Document) (*ProcessResult, error) {
	logger.Info("Processing document",
		zap.String("document_id", doc.ID),
		zap.String("workspace_id", doc.WorkspaceID))

	// Step 1: 写入文档记录（processing状态）
	if err := p.store.StoreDocument(ctx, doc); err != nil {
		metrics.DocumentsProcessedTotal.WithLabelValues(models.StatusFailed).Inc()
		return nil, err
	}

	// Step 2: 分块。零分块是流水线终止条件，不能静默跳过存储
	chunks := p.chunker.Chunk(doc.RawText)
	if len(chunks) == 0 {
		p.failDocument(ctx, doc, 0)
		return nil, apperrors.NewValidationError(apperrors.ErrCodeNoChunks,
			"no chunks created from text")
	}

	// Step 3: 写入分块行
	chunkIDs, err := p.store.StoreChunks(ctx, doc.ID, doc.WorkspaceID, chunks)
	if err != nil {
		p.failDocument(ctx, doc, len(chunks))
		return nil, err
	}
	metrics.ChunksStoredTotal.Add(float64(len(chunkIDs)))

	// Step 4: 对全部分块文本做一次批量向量化
	chunkTexts := make([]string, len(chunks))
	for i, c := range chunks {
		chunkTexts[i] = c.ChunkText
	}
	embeddings, _, err := p.embedding.GenerateEmbeddings(ctx, chunkTexts, true, 0)
	if err != nil {
		p.failDocument(ctx, doc, len(chunks))
		return nil, err
	}

	// Step 5: 逐块标注合规框架与关键词
	tags := make([]knowledge.TagResult, len(chunks))
	for i, c := range chunks {
		tags[i] = p.tagger.Tag(c.ChunkText)
	}

	// Step 6: 写入向量行并回写统计
	stored, err := p.store.StoreEmbeddings(ctx, doc.ID, doc.WorkspaceID, chunkIDs, embeddings, tags)
	if err != nil {
		p.failDocument(ctx, doc, len(chunks))
		return nil, err
	}

	metrics.DocumentsProcessedTotal.WithLabelValues(models.StatusCompleted).Inc()
	p.publishEvent(kafka.DocumentEvent{
		Type:           kafka.EventDocumentProcessed,
		DocumentID:     doc.ID,
		WorkspaceID:    doc.WorkspaceID,
		ChunkCount:     len(chunks),
		EmbeddingCount: stored,
	})

	return &ProcessResult{
		DocumentID:       doc.ID,
		ChunksCreated:    len(chunks),
		EmbeddingsStored: stored,
	}, nil
}

// Search 检索流程：查询文本向量化一次，再做最近邻查询
func (p *PipelineService) Search(ctx context.Context, queryText, workspaceID string,
	limit int, complianceFrameworkID *int) ([]SearchResult, error) {

	queryEmbeddings, _, err := p.embedding.GenerateEmbeddings(ctx, []string{queryText}, true, 0)
	if err != nil {
		return nil, err
	}

	metrics.SearchesTotal.Inc()
	return p.store.SearchSimilar(ctx, queryEmbeddings[0], workspaceID, limit, complianceFrameworkID)
}

// DeleteDocument 级联删除文档并发布删除事件
func (p *PipelineService) DeleteDocument(ctx context.Context, documentID string) (DeleteResult, error) {
	result, err := p.store.DeleteDocument(ctx, documentID)
	if err != nil {
		return result, err
	}

	if result.DeletedDocument {
		p.publishEvent(kafka.DocumentEvent{
			Type:           kafka.EventDocumentDeleted,
			DocumentID:     documentID,
			ChunkCount:     int(result.DeletedChunks),
			EmbeddingCount: int(result.DeletedEmbeddings),
		})
	}
	return result, nil
}

func (p *PipelineService) failDocument(ctx context.Context, doc *models.Document, chunkCount int) {
	if err := p.store.MarkDocumentFailed(ctx, doc.ID); err != nil {
		logger.Error("Failed to mark document as failed",
			zap.String("document_id", doc.ID), zap.Error(err))
	}
	metrics.DocumentsProcessedTotal.WithLabelValues(models.StatusFailed).Inc()
	p.publishEvent(kafka.DocumentEvent{
		Type:        kafka.EventDocumentFailed,
		DocumentID:  doc.ID,
		WorkspaceID: doc.WorkspaceID,
		ChunkCount:  chunkCount,
	})
}

func (p *PipelineService) publishEvent(event kafka.DocumentEvent) {
	if producer := kafka.GetProducer(); producer != nil {
		_ = producer.SendDocumentEvent(event)
	}
}
