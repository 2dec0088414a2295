package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	apperrors "github.com/auditguard/embedding-go/internal/errors"
	"github.com/auditguard/embedding-go/internal/knowledge"
	"github.com/auditguard/embedding-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 确定性向量生成器
type fakeEmbedder struct {
	dimensions int
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dimensions)
		vec[0] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dimensions }
func (f *fakeEmbedder) Ready() bool     { return true }

func newTestPipeline(t *testing.T) (*PipelineService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)
	embedding := knowledge.NewEmbeddingService(&fakeEmbedder{dimensions: 4}, "all-MiniLM-L6-v2", false, 0, 32)
	pipeline := NewPipelineService(
		knowledge.NewChunker(512, 2),
		knowledge.NewTagger(),
		embedding,
		NewVectorService(db),
	)
	return pipeline, mock
}

// TestProcessDocumentZeroChunks 清洗后无分块的文本：文档标记为failed并返回校验错误
func TestProcessDocumentZeroChunks(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	// 文档记录先落库（processing状态）
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "documents"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 分块为零，文档置为failed
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "documents" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 重新处理已有文档，新文本清洗后为空
	doc := &models.Document{
		ID:               "doc-empty",
		WorkspaceID:      "ws-1",
		RawText:          "★★★ ☆☆☆",
		Filename:         "empty.txt",
		ContentType:      "text/plain",
		FileSize:         64,
		ProcessingStatus: models.StatusCompleted,
		ChunkCount:       3,
		EmbeddingCount:   3,
	}

	result, err := pipeline.ProcessDocument(context.Background(), doc)
	assert.Nil(t, result)
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNoChunks, appErr.Code)
	assert.Equal(t, 400, appErr.HTTPCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSearchEmbedsQueryOnce 检索只向量化一次查询文本
func TestSearchEmbedsQueryOnce(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	rows := sqlmock.NewRows([]string{
		"id", "chunk_id", "document_id", "chunk_text", "filename",
		"compliance_framework_id", "compliance_tags", "keywords", "distance",
	}).AddRow("doc-1_emb_0", 1, "doc-1", "Consent is required.", "gdpr.txt", 3, "{GDPR}", "{consent}", 0.2)
	mock.ExpectQuery(`e\.embedding <=> \$1 AS distance`).
		WillReturnRows(rows)

	results, err := pipeline.Search(context.Background(), "consent rules", "ws-1", 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].DocumentID)
	assert.InDelta(t, 0.8, results[0].Similarity, 1e-9)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPipelineDeleteDocument 删除委托给存储层
func TestPipelineDeleteDocument(t *testing.T) {
	pipeline, mock := newTestPipeline(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "documents" WHERE id = \$1`).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "embeddings"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "chunks"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "documents"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := pipeline.DeleteDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, result.DeletedDocument)
	assert.Equal(t, int64(2), result.DeletedEmbeddings)

	assert.NoError(t, mock.ExpectationsWereMet())
}
