package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdmin(t *testing.T) (*AdminService, sqlmock.Sqlmock) {
	t.Helper()

	pipeline, mock := newTestPipeline(t)
	store := pipeline.store
	return NewAdminService(store, pipeline), mock
}

func expectCascadeDelete(mock sqlmock.Sqlmock, documentID string, chunks, embeddings int64) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "documents" WHERE id = \$1`).
		WithArgs(documentID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "embeddings"`).
		WillReturnResult(sqlmock.NewResult(0, embeddings))
	mock.ExpectExec(`DELETE FROM "chunks"`).
		WillReturnResult(sqlmock.NewResult(0, chunks))
	mock.ExpectExec(`DELETE FROM "documents"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

// TestCleanupOrphans 不在有效集合内的文档被级联删除
func TestCleanupOrphans(t *testing.T) {
	admin, mock := newTestAdmin(t)

	mock.ExpectQuery(`SELECT "id" FROM "documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow("doc-1").AddRow("doc-2").AddRow("doc-3"))
	expectCascadeDelete(mock, "doc-2", 3, 3)
	expectCascadeDelete(mock, "doc-3", 2, 2)

	result, err := admin.CleanupOrphans(context.Background(), []string{"doc-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedDocuments)
	assert.Equal(t, int64(5), result.DeletedChunks)
	assert.Equal(t, int64(5), result.DeletedEmbeddings)
	assert.Equal(t, []string{"doc-2", "doc-3"}, result.DeletedIDs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCleanupOrphansNothingToDelete 全部在有效集合内时不删除
func TestCleanupOrphansNothingToDelete(t *testing.T) {
	admin, mock := newTestAdmin(t)

	mock.ExpectQuery(`SELECT "id" FROM "documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-1"))

	result, err := admin.CleanupOrphans(context.Background(), []string{"doc-1", "doc-2"})
	require.NoError(t, err)
	assert.Zero(t, result.DeletedDocuments)
	assert.Empty(t, result.DeletedIDs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCleanupOrphansEmptyValidSet 空有效集合删除全部文档
func TestCleanupOrphansEmptyValidSet(t *testing.T) {
	admin, mock := newTestAdmin(t)

	mock.ExpectQuery(`SELECT "id" FROM "documents"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-1"))
	expectCascadeDelete(mock, "doc-1", 1, 1)

	result, err := admin.CleanupOrphans(context.Background(), []string{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedDocuments)

	assert.NoError(t, mock.ExpectationsWereMet())
}
